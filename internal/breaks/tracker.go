package breaks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// Common errors
var (
	ErrNoOpenPunch = errors.New("no open punch")
	ErrBreakActive = errors.New("a break is already active")
	ErrNotActive   = errors.New("no active break")
	ErrInvalidKind = errors.New("invalid break kind")
	ErrNotOwner    = errors.New("break belongs to another employee")
)

// Tracker manages pauses within an open punch
type Tracker struct {
	store storage.Store
	files *attachment.Client
}

// NewTracker creates a break tracker. files may be nil when no object
// storage is configured.
func NewTracker(store storage.Store, files *attachment.Client) *Tracker {
	return &Tracker{
		store: store,
		files: files,
	}
}

// Start opens a break on the employee's open punch
func (t *Tracker) Start(ctx context.Context, tc *tenant.Context, kind models.BreakKind, notes string) (*models.Break, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	scope := tc.Scope()

	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acquired, err := tx.TryEmployeeLock(ctx, tc.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, storage.ErrLockBusy
	}

	punch, err := tx.GetOpenPunch(ctx, scope, tc.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoOpenPunch
		}
		return nil, err
	}

	active, err := tx.GetActiveBreak(ctx, scope, tc.EmployeeID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if active != nil {
		return nil, ErrBreakActive
	}

	br := &models.Break{
		TenantID:   tc.TenantID,
		EmployeeID: tc.EmployeeID,
		PunchID:    punch.ID,
		Kind:       kind,
		Start:      time.Now().UTC(),
		Notes:      clock.Sanitize(notes),
	}
	if err := tx.CreateBreak(ctx, scope, br); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return br, nil
}

// End stamps the active break with the current time
func (t *Tracker) End(ctx context.Context, tc *tenant.Context) (*models.Break, error) {
	scope := tc.Scope()

	br, err := t.store.GetActiveBreak(ctx, scope, tc.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotActive
		}
		return nil, err
	}

	end := time.Now().UTC()
	if end.Before(br.Start) {
		end = br.Start
	}
	br.End = &end
	if err := t.store.UpdateBreak(ctx, scope, br); err != nil {
		return nil, err
	}
	return br, nil
}

// Active returns the employee's running break, nil when none
func (t *Tracker) Active(ctx context.Context, tc *tenant.Context) (*models.Break, error) {
	br, err := t.store.GetActiveBreak(ctx, tc.Scope(), tc.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return br, nil
}

// Attach validates and uploads a justification file, then links it to
// the break. Upload failure aborts without touching the break.
func (t *Tracker) Attach(ctx context.Context, tc *tenant.Context, breakID uuid.UUID, filename string, data []byte) (*models.Break, error) {
	scope := tc.Scope()

	br, err := t.store.GetBreak(ctx, scope, breakID)
	if err != nil {
		return nil, err
	}
	if br.EmployeeID != tc.EmployeeID && !tc.IsAdmin() {
		return nil, ErrNotOwner
	}

	att, err := t.files.Upload(ctx, tc.TenantID, br.EmployeeID, "breaks", filename, data)
	if err != nil {
		return nil, err
	}

	br.Attachment = att
	if err := t.store.UpdateBreak(ctx, scope, br); err != nil {
		return nil, err
	}
	return br, nil
}
