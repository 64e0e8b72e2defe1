package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// Common errors
var (
	ErrNotPending   = errors.New("request is not pending")
	ErrNotOwner     = errors.New("request belongs to another employee")
	ErrInvalidKind  = errors.New("invalid leave kind")
	ErrInvalidRange = errors.New("end date before start date")
)

// Service runs the leave request lifecycle and keeps the daily-status
// projection in step with approvals.
type Service struct {
	store  storage.Store
	events *integration.Publisher
	loc    *time.Location
}

// NewService creates a leave service
func NewService(store storage.Store, events *integration.Publisher, loc *time.Location) *Service {
	return &Service{
		store:  store,
		events: events,
		loc:    loc,
	}
}

// Create files a new pending request for the calling employee.
// Overlapping pending requests are allowed; the latest approval wins
// on the projection.
func (s *Service) Create(ctx context.Context, tc *tenant.Context, kind models.LeaveKind, start, end time.Time, reason string, att *models.Attachment) (*models.LeaveRequest, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	start = dateutil.Day(start, s.loc)
	end = dateutil.Day(end, s.loc)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	req := &models.LeaveRequest{
		TenantID:   tc.TenantID,
		EmployeeID: tc.EmployeeID,
		Kind:       kind,
		StartDate:  start,
		EndDate:    end,
		Reason:     clock.Sanitize(reason),
		Status:     models.LeavePending,
		Attachment: att,
	}
	if err := s.store.CreateLeaveRequest(ctx, tc.Scope(), req); err != nil {
		return nil, err
	}

	s.events.PublishLeave(req)
	return req, nil
}

// Cancel withdraws the caller's own pending request
func (s *Service) Cancel(ctx context.Context, tc *tenant.Context, id uuid.UUID) (*models.LeaveRequest, error) {
	scope := tc.Scope()

	req, err := s.store.GetLeaveRequest(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != tc.EmployeeID {
		return nil, ErrNotOwner
	}
	if req.Status != models.LeavePending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	req.Status = models.LeaveCancelled
	req.DecidedAt = &now
	if err := s.store.UpdateLeaveRequest(ctx, scope, req); err != nil {
		return nil, err
	}

	s.events.PublishLeave(req)
	return req, nil
}

// Approve decides a pending request and projects its daily statuses in
// the same transaction, so approval and projection never diverge.
func (s *Service) Approve(ctx context.Context, tc *tenant.Context, id uuid.UUID, adminNotes string) (*models.LeaveRequest, error) {
	scope := tc.Scope()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := tx.GetLeaveRequest(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.LeavePending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	adminID := tc.EmployeeID
	req.Status = models.LeaveApproved
	req.ApprovedBy = &adminID
	req.DecidedAt = &now
	req.AdminNotes = clock.Sanitize(adminNotes)
	if err := tx.UpdateLeaveRequest(ctx, scope, req); err != nil {
		return nil, err
	}

	if err := s.project(ctx, tx, scope, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.events.PublishLeave(req)
	return req, nil
}

// Reject decides a pending request without touching the projection
func (s *Service) Reject(ctx context.Context, tc *tenant.Context, id uuid.UUID, adminNotes string) (*models.LeaveRequest, error) {
	scope := tc.Scope()

	req, err := s.store.GetLeaveRequest(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.LeavePending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	adminID := tc.EmployeeID
	req.Status = models.LeaveRejected
	req.ApprovedBy = &adminID
	req.DecidedAt = &now
	req.AdminNotes = clock.Sanitize(adminNotes)
	if err := s.store.UpdateLeaveRequest(ctx, scope, req); err != nil {
		return nil, err
	}

	s.events.PublishLeave(req)
	return req, nil
}

// ListForAdmin lists requests and flags the unread ones as seen, which
// feeds the pending-request badge on the admin side.
func (s *Service) ListForAdmin(ctx context.Context, tc *tenant.Context, f storage.LeaveFilters, limit, offset int) ([]*models.LeaveRequest, int64, error) {
	scope := tc.Scope()

	requests, total, err := s.store.ListLeaveRequests(ctx, scope, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if err := s.store.MarkLeaveRequestsRead(ctx, scope, time.Now()); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// project writes one daily-status row per day of the approved range,
// overwriting whatever was there with a note citing the request
func (s *Service) project(ctx context.Context, tx storage.Store, scope tenant.Scope, req *models.LeaveRequest) error {
	status := models.StatusForLeave(req.Kind)
	kind := req.Kind
	note := fmt.Sprintf("projected from leave request %s", req.ID)

	for d := req.StartDate; !d.After(req.EndDate); d = d.AddDate(0, 0, 1) {
		ds := &models.DailyStatus{
			TenantID:   req.TenantID,
			EmployeeID: req.EmployeeID,
			Date:       d,
			Status:     status,
			SourceKind: &kind,
			Notes:      note,
		}
		if err := tx.UpsertDailyStatus(ctx, scope, ds); err != nil {
			return err
		}
	}
	return nil
}
