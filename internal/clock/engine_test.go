package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage/storagetest"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

func newTestEngine(t *testing.T) (*Engine, *storagetest.Store) {
	t.Helper()
	sealer, err := seal.New(config.SigningConfig{
		Keys:           map[int]string{1: "test-key"},
		CurrentVersion: 1,
	})
	if err != nil {
		t.Fatalf("seal.New: %v", err)
	}
	store := storagetest.New()
	return NewEngine(store, sealer, integration.NewPublisher(nil), time.UTC), store
}

func testContext() *tenant.Context {
	return &tenant.Context{
		TenantID:   uuid.New(),
		EmployeeID: uuid.New(),
	}
}

func TestCheckInCheckOut(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	punch, err := engine.CheckIn(ctx, tc, "morning shift", Meta{TerminalID: "web"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if punch.CheckOut != nil {
		t.Fatal("new punch should be open")
	}
	if punch.Notes != "morning shift" {
		t.Fatalf("notes = %q", punch.Notes)
	}

	ds, err := store.GetDailyStatus(ctx, tc.Scope(), tc.EmployeeID, punch.Date)
	if err != nil {
		t.Fatalf("GetDailyStatus: %v", err)
	}
	if ds.Status != models.DayWorked {
		t.Fatalf("day status = %q, want worked", ds.Status)
	}

	seals, err := store.ListSealsForPunch(ctx, tc.Scope(), punch.ID)
	if err != nil {
		t.Fatalf("ListSealsForPunch: %v", err)
	}
	if len(seals) != 1 || seals[0].Action != models.SealCheckIn {
		t.Fatalf("seals after check-in = %+v", seals)
	}

	closed, err := engine.CheckOut(ctx, tc, "done", Meta{TerminalID: "web"})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if closed.CheckOut == nil {
		t.Fatal("punch should be closed")
	}
	if closed.Notes != "morning shift\ndone" {
		t.Fatalf("notes = %q", closed.Notes)
	}

	seals, _ = store.ListSealsForPunch(ctx, tc.Scope(), punch.ID)
	if len(seals) != 2 || seals[1].Action != models.SealCheckOut {
		t.Fatalf("seals after check-out = %+v", seals)
	}
}

func TestCheckInTwiceSameDay(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	if _, err := engine.CheckIn(ctx, tc, "", Meta{}); err != nil {
		t.Fatalf("first CheckIn: %v", err)
	}
	if _, err := engine.CheckIn(ctx, tc, "", Meta{}); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second CheckIn err = %v, want ErrAlreadyOpen", err)
	}
}

func TestCheckInBlockedByLeaveStatus(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	today := dateutil.Today(time.UTC)
	err := store.UpsertDailyStatus(ctx, tc.Scope(), &models.DailyStatus{
		EmployeeID: tc.EmployeeID,
		Date:       today,
		Status:     models.DaySick,
	})
	if err != nil {
		t.Fatalf("UpsertDailyStatus: %v", err)
	}

	if _, err := engine.CheckIn(ctx, tc, "", Meta{}); !errors.Is(err, ErrDayBlocked) {
		t.Fatalf("CheckIn err = %v, want ErrDayBlocked", err)
	}
}

func TestCheckInAutoClosesStalePunch(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	yesterday := dateutil.Today(time.UTC).AddDate(0, 0, -1)
	stale := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       yesterday,
		CheckIn:    yesterday.Add(8 * time.Hour),
	}
	if err := store.CreatePunch(ctx, tc.Scope(), stale); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}

	punch, err := engine.CheckIn(ctx, tc, "", Meta{})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if punch.ID == stale.ID {
		t.Fatal("expected a new punch, got the stale one")
	}

	closed, err := store.GetPunch(ctx, tc.Scope(), stale.ID)
	if err != nil {
		t.Fatalf("GetPunch: %v", err)
	}
	if closed.CheckOut == nil {
		t.Fatal("stale punch should be closed")
	}
	wantOut := dateutil.EndOfDay(yesterday, time.UTC)
	if !closed.CheckOut.Equal(wantOut) {
		t.Fatalf("stale check-out = %v, want %v", closed.CheckOut, wantOut)
	}
	if closed.AdminNotes != autoCloseNote {
		t.Fatalf("admin notes = %q", closed.AdminNotes)
	}
}

func TestCheckInLockBusy(t *testing.T) {
	engine, store := newTestEngine(t)
	store.EmployeeLockBusy = true

	if _, err := engine.CheckIn(context.Background(), testContext(), "", Meta{}); !errors.Is(err, storage.ErrLockBusy) {
		t.Fatalf("CheckIn err = %v, want ErrLockBusy", err)
	}
}

func TestCheckOutWithoutOpenPunch(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.CheckOut(context.Background(), testContext(), "", Meta{}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("CheckOut err = %v, want ErrNotOpen", err)
	}
}

func TestCheckOutLeavesBreakActive(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	punch, err := engine.CheckIn(ctx, tc, "", Meta{})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	br := &models.Break{
		EmployeeID: tc.EmployeeID,
		PunchID:    punch.ID,
		Kind:       models.BreakLunch,
		Start:      time.Now().UTC(),
	}
	if err := store.CreateBreak(ctx, tc.Scope(), br); err != nil {
		t.Fatalf("CreateBreak: %v", err)
	}

	if _, err := engine.CheckOut(ctx, tc, "", Meta{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	// ending breaks is the tracker's job, not the check-out's
	open, err := store.GetBreak(ctx, tc.Scope(), br.ID)
	if err != nil {
		t.Fatalf("GetBreak: %v", err)
	}
	if open.End != nil {
		t.Fatalf("check-out ended the break at %v", open.End)
	}
}

func TestStaleCloseEndsBreak(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	yesterday := dateutil.Today(time.UTC).AddDate(0, 0, -1)
	stale := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       yesterday,
		CheckIn:    yesterday.Add(8 * time.Hour),
	}
	if err := store.CreatePunch(ctx, tc.Scope(), stale); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}
	br := &models.Break{
		EmployeeID: tc.EmployeeID,
		PunchID:    stale.ID,
		Kind:       models.BreakRest,
		Start:      yesterday.Add(12 * time.Hour),
	}
	if err := store.CreateBreak(ctx, tc.Scope(), br); err != nil {
		t.Fatalf("CreateBreak: %v", err)
	}

	if _, err := engine.CheckIn(ctx, tc, "", Meta{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	ended, err := store.GetBreak(ctx, tc.Scope(), br.ID)
	if err != nil {
		t.Fatalf("GetBreak: %v", err)
	}
	if ended.End == nil {
		t.Fatal("stale close should end the forgotten break")
	}
	if !ended.End.Equal(dateutil.EndOfDay(yesterday, time.UTC)) {
		t.Fatalf("break end = %v, want end of %v", ended.End, yesterday)
	}
}

func TestAutoCloseEndsActiveBreak(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	yesterday := dateutil.Today(time.UTC).AddDate(0, 0, -1)
	stale := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       yesterday,
		CheckIn:    yesterday.Add(9 * time.Hour),
	}
	if err := store.CreatePunch(ctx, tc.Scope(), stale); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}
	br := &models.Break{
		EmployeeID: tc.EmployeeID,
		PunchID:    stale.ID,
		Kind:       models.BreakLunch,
		Start:      yesterday.Add(13 * time.Hour),
	}
	if err := store.CreateBreak(ctx, tc.Scope(), br); err != nil {
		t.Fatalf("CreateBreak: %v", err)
	}

	if _, err := engine.AutoClose(ctx, yesterday); err != nil {
		t.Fatalf("AutoClose: %v", err)
	}

	ended, err := store.GetBreak(ctx, tc.Scope(), br.ID)
	if err != nil {
		t.Fatalf("GetBreak: %v", err)
	}
	if ended.End == nil {
		t.Fatal("auto-close should end the active break")
	}
}

func TestAutoCloseIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	yesterday := dateutil.Today(time.UTC).AddDate(0, 0, -1)
	stale := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       yesterday,
		CheckIn:    yesterday.Add(9 * time.Hour),
	}
	if err := store.CreatePunch(ctx, tc.Scope(), stale); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}

	closed, err := engine.AutoClose(ctx, yesterday)
	if err != nil {
		t.Fatalf("AutoClose: %v", err)
	}
	if closed != 1 {
		t.Fatalf("first pass closed %d, want 1", closed)
	}

	closed, err = engine.AutoClose(ctx, yesterday)
	if err != nil {
		t.Fatalf("AutoClose rerun: %v", err)
	}
	if closed != 0 {
		t.Fatalf("second pass closed %d, want 0", closed)
	}

	punch, _ := store.GetPunch(ctx, tc.Scope(), stale.ID)
	if !punch.CheckOut.Equal(dateutil.EndOfDay(yesterday, time.UTC)) {
		t.Fatalf("check-out = %v", punch.CheckOut)
	}
}

func TestCrossTenantPunchLookup(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	tc := testContext()

	punch, err := engine.CheckIn(ctx, tc, "", Meta{})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	other := tenant.Scope{TenantID: uuid.New()}
	if _, err := store.GetPunch(ctx, other, punch.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-tenant lookup err = %v, want ErrNotFound", err)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"  padded  ", "padded"},
		{"<script>alert(1)</script>note", "alert(1)note"},
		{"a <b>bold</b> claim", "a bold claim"},
		{"<img src=x onerror=alert(1)>", ""},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
