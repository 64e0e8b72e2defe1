package clock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

const endOfDayNote = "auto-closed at end of day"

// AutoClose closes every punch still open on the given local date at
// 23:59:59 of that date, across all tenants. Each punch gets its own
// transaction so one failure never blocks the rest, and a punch closed
// by a concurrent run is skipped, which makes reruns idempotent.
func (e *Engine) AutoClose(ctx context.Context, date time.Time) (int, error) {
	scope := tenant.Bypass().Scope()

	acquired, err := e.store.TryNamedLock(ctx, storage.AutoCloseLockID)
	if err != nil {
		return 0, err
	}
	if !acquired {
		log.Debug().Msg("Auto-close already running elsewhere, skipping")
		return 0, nil
	}
	defer func() {
		if err := e.store.ReleaseNamedLock(ctx, storage.AutoCloseLockID); err != nil {
			log.Error().Err(err).Msg("Failed to release auto-close lock")
		}
	}()

	open, err := e.store.ListOpenPunchesForDate(ctx, scope, dateutil.Day(date, e.loc))
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, punch := range open {
		if err := e.autoCloseOne(ctx, punch.ID); err != nil {
			log.Error().Err(err).
				Str("punchID", punch.ID.String()).
				Str("employeeID", punch.EmployeeID.String()).
				Msg("Failed to auto-close punch")
			continue
		}
		closed++
	}

	if closed > 0 {
		log.Info().Int("closed", closed).Msg("Auto-close pass finished")
	}
	return closed, nil
}

func (e *Engine) autoCloseOne(ctx context.Context, punchID uuid.UUID) error {
	scope := tenant.Bypass().Scope()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	punch, err := tx.GetPunch(ctx, scope, punchID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if !punch.IsOpen() {
		return nil
	}

	at := dateutil.EndOfDay(punch.Date, e.loc)
	if err := e.endActiveBreak(ctx, tx, scope, punch, at); err != nil {
		return err
	}
	if err := e.closePunch(ctx, tx, scope, punch, at, endOfDayNote, Meta{TerminalID: "system"}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	e.events.PublishPunch(models.SealCheckOut, punch)
	return nil
}

// CloseNow lets an admin close an employee's open punch at the current
// time instead of waiting for the end-of-day pass.
func (e *Engine) CloseNow(ctx context.Context, tc *tenant.Context, punchID uuid.UUID, meta Meta) (*models.Punch, error) {
	scope := tc.Scope()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	punch, err := tx.GetPunch(ctx, scope, punchID)
	if err != nil {
		return nil, err
	}
	if !punch.IsOpen() {
		return nil, ErrNotOpen
	}

	acquired, err := tx.TryEmployeeLock(ctx, punch.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, storage.ErrLockBusy
	}

	adminID := tc.EmployeeID
	punch.ModifiedBy = &adminID
	if err := e.closePunch(ctx, tx, scope, punch, time.Now().UTC(), "closed by administrator", meta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.events.PublishPunch(models.SealCheckOut, punch)
	return punch, nil
}
