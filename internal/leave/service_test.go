package leave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage/storagetest"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

func newTestService() (*Service, *storagetest.Store) {
	store := storagetest.New()
	return NewService(store, integration.NewPublisher(nil), time.UTC), store
}

func employeeContext() *tenant.Context {
	return &tenant.Context{
		TenantID:   uuid.New(),
		EmployeeID: uuid.New(),
	}
}

func adminFor(tc *tenant.Context) *tenant.Context {
	role := models.RoleAdmin
	return &tenant.Context{
		TenantID:   tc.TenantID,
		EmployeeID: uuid.New(),
		Role:       &role,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tc := employeeContext()

	if _, err := svc.Create(ctx, tc, "sabbatical", date(2026, 3, 2), date(2026, 3, 6), "", nil); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("bad kind err = %v, want ErrInvalidKind", err)
	}
	if _, err := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 3, 6), date(2026, 3, 2), "", nil); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("reversed range err = %v, want ErrInvalidRange", err)
	}

	req, err := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 3, 2), date(2026, 3, 6), "<b>beach</b>", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != models.LeavePending {
		t.Fatalf("status = %q, want pending", req.Status)
	}
	if req.Reason != "beach" {
		t.Fatalf("reason = %q, want sanitized", req.Reason)
	}
}

func TestApproveProjectsDailyStatuses(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	tc := employeeContext()
	admin := adminFor(tc)

	start, end := date(2026, 3, 2), date(2026, 3, 6)
	req, err := svc.Create(ctx, tc, models.LeaveMedical, start, end, "flu", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	approved, err := svc.Approve(ctx, admin, req.ID, "get well")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.LeaveApproved {
		t.Fatalf("status = %q", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != admin.EmployeeID {
		t.Fatal("approver not recorded")
	}

	statuses, err := store.ListDailyStatuses(ctx, tc.Scope(), tc.EmployeeID, start, end)
	if err != nil {
		t.Fatalf("ListDailyStatuses: %v", err)
	}
	if len(statuses) != 5 {
		t.Fatalf("projected %d days, want 5", len(statuses))
	}
	for i, ds := range statuses {
		want := start.AddDate(0, 0, i)
		if !ds.Date.Equal(want) {
			t.Errorf("day %d = %v, want %v", i, ds.Date, want)
		}
		if ds.Status != models.DaySick {
			t.Errorf("day %d status = %q, want sick", i, ds.Status)
		}
		if ds.SourceKind == nil || *ds.SourceKind != models.LeaveMedical {
			t.Errorf("day %d source kind = %v", i, ds.SourceKind)
		}
	}
}

func TestApproveRequiresPending(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tc := employeeContext()
	admin := adminFor(tc)

	req, _ := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 4, 1), date(2026, 4, 3), "", nil)
	if _, err := svc.Approve(ctx, admin, req.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := svc.Approve(ctx, admin, req.ID, ""); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second Approve err = %v, want ErrNotPending", err)
	}
	if _, err := svc.Reject(ctx, admin, req.ID, ""); !errors.Is(err, ErrNotPending) {
		t.Fatalf("Reject after approve err = %v, want ErrNotPending", err)
	}
}

func TestCancelOnlyOwnPending(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tc := employeeContext()

	req, _ := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 5, 4), date(2026, 5, 8), "", nil)

	stranger := &tenant.Context{TenantID: tc.TenantID, EmployeeID: uuid.New()}
	if _, err := svc.Cancel(ctx, stranger, req.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("stranger cancel err = %v, want ErrNotOwner", err)
	}

	cancelled, err := svc.Cancel(ctx, tc, req.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.LeaveCancelled {
		t.Fatalf("status = %q", cancelled.Status)
	}
	if _, err := svc.Cancel(ctx, tc, req.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second cancel err = %v, want ErrNotPending", err)
	}
}

func TestListForAdminMarksRead(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	tc := employeeContext()
	admin := adminFor(tc)

	if _, err := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 6, 1), date(2026, 6, 2), "", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	requests, total, err := svc.ListForAdmin(ctx, admin, storage.LeaveFilters{}, 50, 0)
	if err != nil {
		t.Fatalf("ListForAdmin: %v", err)
	}
	if total != 1 || len(requests) != 1 {
		t.Fatalf("total = %d, len = %d", total, len(requests))
	}

	stored, _ := store.GetLeaveRequest(ctx, tc.Scope(), requests[0].ID)
	if !stored.ReadByAdmin || stored.ReadAt == nil {
		t.Fatal("request should be marked read after admin listing")
	}
}

func TestCrossTenantLeaveInvisible(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	tc := employeeContext()

	req, _ := svc.Create(ctx, tc, models.LeaveVacation, date(2026, 7, 6), date(2026, 7, 10), "", nil)

	other := tenant.Scope{TenantID: uuid.New()}
	if _, err := store.GetLeaveRequest(ctx, other, req.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-tenant lookup err = %v, want ErrNotFound", err)
	}
}
