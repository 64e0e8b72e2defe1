package clock

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// Common errors
var (
	ErrAlreadyOpen = errors.New("punch already open today")
	ErrNotOpen     = errors.New("no open punch")
	ErrDayBlocked  = errors.New("day blocked by leave status")
)

const autoCloseNote = "auto-closed on next-day clock-in"

// Engine is the punch state machine. Every transition runs inside one
// transaction under the employee's advisory lock, gets sealed, and is
// published to the event bus after commit.
type Engine struct {
	store  storage.Store
	sealer *seal.Sealer
	events *integration.Publisher
	loc    *time.Location
}

// NewEngine creates a clock engine
func NewEngine(store storage.Store, sealer *seal.Sealer, events *integration.Publisher, loc *time.Location) *Engine {
	return &Engine{
		store:  store,
		sealer: sealer,
		events: events,
		loc:    loc,
	}
}

// Meta carries the request context that goes under the seal
type Meta struct {
	TerminalID string
	UserAgent  string
	RemoteIP   string
}

// Status is the employee's current clock state
type Status struct {
	OpenPunch   *models.Punch       `json:"openPunch,omitempty"`
	ActiveBreak *models.Break       `json:"activeBreak,omitempty"`
	DayStatus   *models.DailyStatus `json:"dayStatus,omitempty"`
}

// CheckIn opens a new punch for the employee. A stale open punch from a
// previous day is auto-closed first; a blocking daily status (sick,
// absent, vacation) refuses the transition.
func (e *Engine) CheckIn(ctx context.Context, tc *tenant.Context, notes string, meta Meta) (*models.Punch, error) {
	now := time.Now()
	today := dateutil.Day(now, e.loc)
	scope := tc.Scope()

	tx, err := e.store.BeginTx(ctx)
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

	ds, err := tx.GetDailyStatus(ctx, scope, tc.EmployeeID, today)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if ds != nil && ds.Status.Blocking() {
		return nil, fmt.Errorf("%w: %s", ErrDayBlocked, ds.Status)
	}

	open, err := tx.GetOpenPunch(ctx, scope, tc.EmployeeID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if open != nil {
		if dateutil.SameDate(open.Date, today) {
			return nil, ErrAlreadyOpen
		}
		// stale punch from an earlier day: close it at 23:59:59 of its
		// own date before opening the new one
		staleEnd := dateutil.EndOfDay(open.Date, e.loc)
		if err := e.endActiveBreak(ctx, tx, scope, open, staleEnd); err != nil {
			return nil, err
		}
		if err := e.closePunch(ctx, tx, scope, open, staleEnd, autoCloseNote, Meta{TerminalID: "system"}); err != nil {
			return nil, err
		}
	}

	punch := &models.Punch{
		EmployeeID: tc.EmployeeID,
		TenantID:   tc.TenantID,
		Date:       today,
		CheckIn:    now.UTC(),
		Notes:      Sanitize(notes),
	}
	if err := tx.CreatePunch(ctx, scope, punch); err != nil {
		return nil, err
	}

	if ds == nil {
		worked := &models.DailyStatus{
			TenantID:   punch.TenantID,
			EmployeeID: tc.EmployeeID,
			Date:       today,
			Status:     models.DayWorked,
		}
		if err := tx.UpsertDailyStatus(ctx, scope, worked); err != nil {
			return nil, err
		}
	}

	e.sealTransition(ctx, tx, scope, punch, models.SealCheckIn, now, meta)

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.events.PublishPunch(models.SealCheckIn, punch)
	return punch, nil
}

// CheckOut closes the employee's open punch. An active break stays
// open; ending breaks is the break tracker's job.
func (e *Engine) CheckOut(ctx context.Context, tc *tenant.Context, notes string, meta Meta) (*models.Punch, error) {
	now := time.Now()
	scope := tc.Scope()

	tx, err := e.store.BeginTx(ctx)
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

	open, err := tx.GetOpenPunch(ctx, scope, tc.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotOpen
		}
		return nil, err
	}

	if n := Sanitize(notes); n != "" {
		if open.Notes != "" {
			open.Notes += "\n"
		}
		open.Notes += n
	}
	if err := e.closePunch(ctx, tx, scope, open, now.UTC(), "", meta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.events.PublishPunch(models.SealCheckOut, open)
	return open, nil
}

// Status returns the employee's current clock state
func (e *Engine) Status(ctx context.Context, tc *tenant.Context) (*Status, error) {
	scope := tc.Scope()
	st := &Status{}

	open, err := e.store.GetOpenPunch(ctx, scope, tc.EmployeeID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	st.OpenPunch = open

	if open != nil {
		br, err := e.store.GetActiveBreak(ctx, scope, tc.EmployeeID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		st.ActiveBreak = br
	}

	today := dateutil.Today(e.loc)
	ds, err := e.store.GetDailyStatus(ctx, scope, tc.EmployeeID, today)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	st.DayStatus = ds

	return st, nil
}

// closePunch stamps check_out and seals the transition. Runs inside
// the caller's tx.
func (e *Engine) closePunch(ctx context.Context, tx storage.Store, scope tenant.Scope, punch *models.Punch, at time.Time, note string, meta Meta) error {
	at = at.UTC()
	if at.Before(punch.CheckIn) {
		at = punch.CheckIn
	}

	punch.CheckOut = &at
	if note != "" {
		if punch.AdminNotes != "" {
			punch.AdminNotes += "\n"
		}
		punch.AdminNotes += note
	}
	if err := tx.UpdatePunch(ctx, scope, punch); err != nil {
		return err
	}

	e.sealTransition(ctx, tx, scope, punch, models.SealCheckOut, at, meta)
	return nil
}

// endActiveBreak stamps the end of the punch's active break when the
// punch is closed automatically. The employee is not around to end it
// themselves, unlike a normal check-out.
func (e *Engine) endActiveBreak(ctx context.Context, tx storage.Store, scope tenant.Scope, punch *models.Punch, at time.Time) error {
	br, err := tx.GetActiveBreak(ctx, scope, punch.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if br.PunchID != punch.ID {
		return nil
	}

	end := at.UTC()
	if end.Before(br.Start) {
		end = br.Start
	}
	br.End = &end
	return tx.UpdateBreak(ctx, scope, br)
}

// sealTransition signs and stores the seal. A sealing failure is logged
// and the transition still commits; the gap shows up in the audit
// report instead of blocking the employee.
func (e *Engine) sealTransition(ctx context.Context, tx storage.Store, scope tenant.Scope, punch *models.Punch, action models.SealAction, at time.Time, meta Meta) {
	ps, err := e.sealer.Seal(seal.Request{
		TenantID:   punch.TenantID,
		EmployeeID: punch.EmployeeID,
		PunchID:    punch.ID,
		Action:     action,
		Timestamp:  at,
		TerminalID: meta.TerminalID,
		UserAgent:  meta.UserAgent,
		RemoteIP:   meta.RemoteIP,
	})
	if err != nil {
		log.Error().Err(err).
			Str("punchID", punch.ID.String()).
			Str("action", string(action)).
			Msg("Failed to build punch seal")
		return
	}

	if err := tx.CreateSeal(ctx, scope, ps); err != nil {
		log.Error().Err(err).
			Str("punchID", punch.ID.String()).
			Str("action", string(action)).
			Msg("Failed to store punch seal")
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips HTML tags and trims free-text input
func Sanitize(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
