package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// Send window around the configured reminder time. A reminder fires
// when now falls inside [scheduled-early, scheduled+late]; outside the
// window the slot is considered missed, not queued.
const (
	windowEarly = 2 * time.Minute
	windowLate  = 5 * time.Minute
)

// Scheduler fires punch reminder emails. It is safe to run on several
// workers at once: the tick body grabs a global advisory lock and the
// per-employee send runs under a row lock with a dedup re-check, so a
// reminder goes out at most once per employee, kind and day.
type Scheduler struct {
	store    storage.Store
	mailer   Mailer
	interval time.Duration
	loc      *time.Location
}

// NewScheduler creates a reminder scheduler
func NewScheduler(store storage.Store, mailer Mailer, interval time.Duration, loc *time.Location) *Scheduler {
	return &Scheduler{
		store:    store,
		mailer:   mailer,
		interval: interval,
		loc:      loc,
	}
}

// Run ticks until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Reminder scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reminder scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx, time.Now()); err != nil {
				log.Error().Err(err).Msg("Reminder tick failed")
			}
		}
	}
}

// Tick runs one pass. Exits immediately when another worker holds the
// scheduler lock.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	acquired, err := s.store.TryNamedLock(ctx, storage.ReminderSchedulerLockID)
	if err != nil {
		return err
	}
	if !acquired {
		log.Debug().Msg("Reminder tick already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := s.store.ReleaseNamedLock(ctx, storage.ReminderSchedulerLockID); err != nil {
			log.Error().Err(err).Msg("Failed to release reminder scheduler lock")
		}
	}()

	employees, err := s.store.ListReminderEmployees(ctx, tenant.Bypass().Scope())
	if err != nil {
		return err
	}

	dayKey := dateutil.WeekdayKey(now, s.loc)
	for _, emp := range employees {
		if !emp.ReminderDaySet()[dayKey] {
			continue
		}
		s.processEmployee(ctx, emp, now, models.ReminderEntry, emp.ReminderEntryAt)
		s.processEmployee(ctx, emp, now, models.ReminderExit, emp.ReminderExitAt)
	}
	return nil
}

func (s *Scheduler) processEmployee(ctx context.Context, emp *models.Employee, now time.Time, kind models.ReminderKind, at *string) {
	if at == nil || *at == "" {
		return
	}
	hour, minute, ok := dateutil.ParseClock(*at)
	if !ok {
		log.Warn().
			Str("employeeID", emp.ID.String()).
			Str("time", *at).
			Msg("Malformed reminder time, skipping")
		return
	}

	local := now.In(s.loc)
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, s.loc)
	if now.Before(scheduled.Add(-windowEarly)) || now.After(scheduled.Add(windowLate)) {
		return
	}

	scope := tenant.Scope{TenantID: emp.TenantID}
	// dedup window is the local calendar day, expressed as instants so
	// sends near midnight land on the right day in any zone
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	sent, err := s.store.CountRemindersBetween(ctx, scope, emp.ID, kind, dayStart, dayEnd)
	if err != nil {
		log.Error().Err(err).Str("employeeID", emp.ID.String()).Msg("Reminder dedup check failed")
		return
	}
	if sent > 0 {
		return
	}

	if err := s.send(ctx, emp, scope, kind, *at, now, dayStart, dayEnd); err != nil {
		log.Error().Err(err).
			Str("employeeID", emp.ID.String()).
			Str("kind", string(kind)).
			Msg("Failed to send reminder")
	}
}

// send re-checks the dedup predicate under a row lock, then sends and
// records the attempt in the same transaction. A failed send is logged
// as a ReminderLog row too and not retried within the tick.
func (s *Scheduler) send(ctx context.Context, emp *models.Employee, scope tenant.Scope, kind models.ReminderKind, scheduledFor string, now, dayStart, dayEnd time.Time) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.LockEmployee(ctx, scope, emp.ID); err != nil {
		return err
	}

	sent, err := tx.CountRemindersBetween(ctx, scope, emp.ID, kind, dayStart, dayEnd)
	if err != nil {
		return err
	}
	if sent > 0 {
		return nil
	}

	to := []string{emp.Email}
	if emp.ReminderExtraTo != "" {
		to = append(to, emp.ReminderExtraTo)
	}

	subject, body := composeReminder(emp, kind, scheduledFor)
	sendErr := s.mailer.Send(to, subject, body)

	entry := &models.ReminderLog{
		TenantID:     emp.TenantID,
		EmployeeID:   emp.ID,
		Kind:         kind,
		EmailTo:      emp.Email,
		ExtraEmailTo: emp.ReminderExtraTo,
		ScheduledFor: scheduledFor,
		SentAt:       now.UTC(),
		Success:      sendErr == nil,
	}
	if sendErr != nil {
		entry.ErrorText = sendErr.Error()
	}
	if err := tx.CreateReminderLog(ctx, scope, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if sendErr != nil {
		return sendErr
	}
	log.Info().
		Str("employeeID", emp.ID.String()).
		Str("kind", string(kind)).
		Msg("Reminder sent")
	return nil
}

func composeReminder(emp *models.Employee, kind models.ReminderKind, scheduledFor string) (string, string) {
	switch kind {
	case models.ReminderEntry:
		return "Clock-in reminder",
			fmt.Sprintf("Hello %s,\n\nThis is your %s clock-in reminder. Don't forget to register your entry.\n", emp.FullName, scheduledFor)
	default:
		return "Clock-out reminder",
			fmt.Sprintf("Hello %s,\n\nThis is your %s clock-out reminder. Don't forget to register your exit.\n", emp.FullName, scheduledFor)
	}
}
