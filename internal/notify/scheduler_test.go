package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage/storagetest"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

type fakeMailer struct {
	sent [][]string
	err  error
}

func (m *fakeMailer) Send(to []string, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

// monday 09:00 UTC
var tickNow = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

// dayWindow returns the local-day dedup bounds around t
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func seedReminderEmployee(t *testing.T, store *storagetest.Store, plan models.Plan) *models.Employee {
	t.Helper()
	ctx := context.Background()

	tn := &models.Tenant{
		Name:     "Acme",
		Slug:     "acme-" + uuid.NewString()[:8],
		Plan:     plan,
		IsActive: true,
	}
	if err := store.CreateTenant(ctx, tn); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	entry := "09:00"
	exit := "17:00"
	emp := &models.Employee{
		Username:         "worker-" + uuid.NewString()[:8],
		Email:            "worker@example.com",
		FullName:         "Test Worker",
		IsActive:         true,
		RemindersEnabled: true,
		ReminderDays:     "mon,tue,wed,thu,fri",
		ReminderEntryAt:  &entry,
		ReminderExitAt:   &exit,
	}
	if err := store.CreateEmployee(ctx, tenant.Scope{TenantID: tn.ID}, emp); err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return emp
}

func TestTickSendsEntryReminder(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	emp := seedReminderEmployee(t, store, models.PlanPro)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}

	scope := tenant.Scope{TenantID: emp.TenantID}
	from, to := dayWindow(tickNow, time.UTC)
	count, err := store.CountRemindersBetween(context.Background(), scope, emp.ID, models.ReminderEntry, from, to)
	if err != nil {
		t.Fatalf("CountRemindersBetween: %v", err)
	}
	if count != 1 {
		t.Fatalf("logged %d reminders, want 1", count)
	}
}

func TestTickDeduplicates(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanPro)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("first Tick: %v", err)
	}
	if err := sched.Tick(context.Background(), tickNow.Add(2*time.Minute)); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
}

func TestTickOutsideWindow(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanPro)

	// ten past is beyond the late edge; the slot is missed, not queued
	if err := sched.Tick(context.Background(), tickNow.Add(10*time.Minute)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(mailer.sent))
	}
}

func TestTickSkipsUnconfiguredDay(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanPro)

	// tickNow is a monday; saturday same time is not in the day set
	saturday := tickNow.AddDate(0, 0, 5)
	if err := sched.Tick(context.Background(), saturday); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(mailer.sent))
	}
}

func TestTickSkipsLitePlan(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanLite)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(mailer.sent))
	}
}

func TestTickSkipsWhenLockHeld(t *testing.T) {
	store := storagetest.New()
	store.NamedLockBusy = true
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanPro)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(mailer.sent))
	}
}

func TestTickReleasesSchedulerLock(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	seedReminderEmployee(t, store, models.PlanPro)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	// the lock must be free again for the next tick or worker
	acquired, err := store.TryNamedLock(context.Background(), storage.ReminderSchedulerLockID)
	if err != nil {
		t.Fatalf("TryNamedLock: %v", err)
	}
	if !acquired {
		t.Fatal("scheduler lock still held after tick")
	}
	if err := store.ReleaseNamedLock(context.Background(), storage.ReminderSchedulerLockID); err != nil {
		t.Fatalf("ReleaseNamedLock: %v", err)
	}
}

func TestTickDedupFollowsLocalDay(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	loc := time.FixedZone("UTC+2", 2*3600)
	sched := NewScheduler(store, mailer, time.Minute, loc)

	emp := seedReminderEmployee(t, store, models.PlanPro)
	entry := "01:00"
	emp.ReminderEntryAt = &entry
	emp.ReminderExitAt = nil
	if err := store.UpdateEmployee(context.Background(), tenant.Scope{TenantID: emp.TenantID}, emp); err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}

	// 23:00 UTC monday is 01:00 tuesday in the tenant zone; both ticks
	// fall on the same local day even though the UTC date differs
	firstTick := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	if err := sched.Tick(context.Background(), firstTick); err != nil {
		t.Fatalf("first Tick: %v", err)
	}
	if err := sched.Tick(context.Background(), firstTick.Add(2*time.Minute)); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}

	scope := tenant.Scope{TenantID: emp.TenantID}
	from, to := dayWindow(firstTick, loc)
	count, err := store.CountRemindersBetween(context.Background(), scope, emp.ID, models.ReminderEntry, from, to)
	if err != nil {
		t.Fatalf("CountRemindersBetween: %v", err)
	}
	if count != 1 {
		t.Fatalf("logged %d reminders in the local day, want 1", count)
	}
}

func TestFailedSendIsLoggedAndRetried(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{err: errors.New("relay down")}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	emp := seedReminderEmployee(t, store, models.PlanPro)

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	// the failure is recorded but does not satisfy the dedup predicate
	scope := tenant.Scope{TenantID: emp.TenantID}
	from, to := dayWindow(tickNow, time.UTC)
	count, _ := store.CountRemindersBetween(context.Background(), scope, emp.ID, models.ReminderEntry, from, to)
	if count != 0 {
		t.Fatalf("successful count = %d, want 0", count)
	}

	mailer.err = nil
	if err := sched.Tick(context.Background(), tickNow.Add(3*time.Minute)); err != nil {
		t.Fatalf("retry Tick: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails after retry, want 1", len(mailer.sent))
	}
}

func TestExtraRecipientIncluded(t *testing.T) {
	store := storagetest.New()
	mailer := &fakeMailer{}
	sched := NewScheduler(store, mailer, time.Minute, time.UTC)
	emp := seedReminderEmployee(t, store, models.PlanPro)

	emp.ReminderExtraTo = "partner@example.com"
	if err := store.UpdateEmployee(context.Background(), tenant.Scope{TenantID: emp.TenantID}, emp); err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}

	if err := sched.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(mailer.sent) != 1 || len(mailer.sent[0]) != 2 {
		t.Fatalf("recipients = %v", mailer.sent)
	}
}
