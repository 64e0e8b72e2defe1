package overtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage/storagetest"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// monday of an arbitrary fixed week
var refWeek = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func newTestAggregator() (*Aggregator, *storagetest.Store) {
	store := storagetest.New()
	return NewAggregator(store, time.UTC), store
}

func seedEmployee(t *testing.T, store *storagetest.Store, tc *tenant.Context, weeklyHours int) *models.Employee {
	t.Helper()
	emp := &models.Employee{
		ID:          tc.EmployeeID,
		Username:    "worker-" + uuid.NewString()[:8],
		Email:       "worker@example.com",
		FullName:    "Test Worker",
		IsActive:    true,
		WeeklyHours: weeklyHours,
	}
	if err := store.CreateEmployee(context.Background(), tc.Scope(), emp); err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return emp
}

// seedPunch writes a closed punch of the given length on a day of the
// reference week.
func seedPunch(t *testing.T, store *storagetest.Store, tc *tenant.Context, dayOffset int, hours float64) *models.Punch {
	t.Helper()
	day := refWeek.AddDate(0, 0, dayOffset)
	in := day.Add(8 * time.Hour)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	punch := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       day,
		CheckIn:    in,
		CheckOut:   &out,
	}
	if err := store.CreatePunch(context.Background(), tc.Scope(), punch); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}
	return punch
}

func adminContext(tc *tenant.Context) *tenant.Context {
	role := models.RoleAdmin
	return &tenant.Context{TenantID: tc.TenantID, EmployeeID: uuid.New(), Role: &role}
}

func TestGenerateWeekCreatesEntry(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 5; d++ {
		seedPunch(t, store, tc, d, 9) // 45h worked vs 40h contract
	}

	touched, err := agg.GenerateWeek(ctx, adminContext(tc), refWeek)
	if err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	if touched != 1 {
		t.Fatalf("touched = %d, want 1", touched)
	}

	entry, err := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)
	if err != nil {
		t.Fatalf("GetOvertimeEntryForWeek: %v", err)
	}
	if entry.WorkedSeconds != 45*3600 {
		t.Fatalf("worked = %d, want %d", entry.WorkedSeconds, 45*3600)
	}
	if entry.DeltaSeconds != 5*3600 {
		t.Fatalf("delta = %d, want %d", entry.DeltaSeconds, 5*3600)
	}
	if entry.Status != models.OvertimePending {
		t.Fatalf("status = %q", entry.Status)
	}
	if !entry.WeekEnd.Equal(refWeek.AddDate(0, 0, 6)) {
		t.Fatalf("week end = %v", entry.WeekEnd)
	}
}

func TestGenerateWeekWithinTolerance(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 5; d++ {
		seedPunch(t, store, tc, d, 8)
	}
	seedPunch(t, store, tc, 5, 0.5) // 40.5h, inside the one-hour band

	touched, err := agg.GenerateWeek(ctx, adminContext(tc), refWeek)
	if err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	if touched != 0 {
		t.Fatalf("touched = %d, want 0", touched)
	}
}

func TestGenerateWeekToleranceBoundary(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 5; d++ {
		seedPunch(t, store, tc, d, 8)
	}
	seedPunch(t, store, tc, 5, 1) // exactly one hour over, still inside the band

	touched, err := agg.GenerateWeek(ctx, adminContext(tc), refWeek)
	if err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	if touched != 0 {
		t.Fatalf("touched = %d, want 0 at the tolerance edge", touched)
	}
	if _, err := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("entry lookup err = %v, want ErrNotFound", err)
	}

	// a quarter hour more and the week leaves the band
	seedPunch(t, store, tc, 6, 0.25)
	touched, err = agg.GenerateWeek(ctx, adminContext(tc), refWeek)
	if err != nil {
		t.Fatalf("second GenerateWeek: %v", err)
	}
	if touched != 1 {
		t.Fatalf("touched = %d, want 1 past the tolerance edge", touched)
	}
	entry, err := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)
	if err != nil {
		t.Fatalf("GetOvertimeEntryForWeek: %v", err)
	}
	if entry.DeltaSeconds != 4500 {
		t.Fatalf("delta = %d, want 4500", entry.DeltaSeconds)
	}
}

func TestGenerateWeekUndertime(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 4; d++ {
		seedPunch(t, store, tc, d, 8) // 32h, 8 short
	}

	if _, err := agg.GenerateWeek(ctx, adminContext(tc), refWeek); err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	entry, err := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)
	if err != nil {
		t.Fatalf("GetOvertimeEntryForWeek: %v", err)
	}
	if entry.DeltaSeconds != -8*3600 {
		t.Fatalf("delta = %d, want %d", entry.DeltaSeconds, -8*3600)
	}
}

func TestGenerateWeekSkipsZeroContract(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	seedEmployee(t, store, tc, 0)
	seedPunch(t, store, tc, 0, 12)

	touched, err := agg.GenerateWeek(ctx, adminContext(tc), refWeek)
	if err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	if touched != 0 {
		t.Fatalf("touched = %d, want 0", touched)
	}
}

func TestGenerateWeekRefreshesPendingOnly(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	admin := adminContext(tc)

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 5; d++ {
		seedPunch(t, store, tc, d, 9)
	}
	if _, err := agg.GenerateWeek(ctx, admin, refWeek); err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}

	// another punch lands, a pending entry picks it up
	seedPunch(t, store, tc, 5, 2)
	if _, err := agg.GenerateWeek(ctx, admin, refWeek); err != nil {
		t.Fatalf("second GenerateWeek: %v", err)
	}
	entry, _ := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)
	if entry.WorkedSeconds != 47*3600 {
		t.Fatalf("refreshed worked = %d, want %d", entry.WorkedSeconds, 47*3600)
	}

	// once decided the entry is frozen
	if _, err := agg.Approve(ctx, admin, entry.ID, "ok"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	seedPunch(t, store, tc, 6, 3)
	if _, err := agg.GenerateWeek(ctx, admin, refWeek); err != nil {
		t.Fatalf("third GenerateWeek: %v", err)
	}
	frozen, _ := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)
	if frozen.WorkedSeconds != 47*3600 {
		t.Fatalf("decided entry was refreshed, worked = %d", frozen.WorkedSeconds)
	}
}

func TestDecideRequiresPending(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	admin := adminContext(tc)

	seedEmployee(t, store, tc, 40)
	for d := 0; d < 5; d++ {
		seedPunch(t, store, tc, d, 10)
	}
	if _, err := agg.GenerateWeek(ctx, admin, refWeek); err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	entry, _ := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)

	if _, err := agg.Reject(ctx, admin, entry.ID, "no"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := agg.Approve(ctx, admin, entry.ID, "yes"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("Approve after reject err = %v, want ErrNotPending", err)
	}
}

func TestAutoBalance(t *testing.T) {
	agg, store := newTestAggregator()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	admin := adminContext(tc)

	seedEmployee(t, store, tc, 40)
	var last *models.Punch
	for d := 0; d < 5; d++ {
		last = seedPunch(t, store, tc, d, 8.4) // 42h worked
	}
	if _, err := agg.GenerateWeek(ctx, admin, refWeek); err != nil {
		t.Fatalf("GenerateWeek: %v", err)
	}
	entry, _ := store.GetOvertimeEntryForWeek(ctx, tc.Scope(), tc.EmployeeID, refWeek)

	balanced, err := agg.AutoBalance(ctx, admin, entry.ID, "balanced")
	if err != nil {
		t.Fatalf("AutoBalance: %v", err)
	}
	if balanced.Status != models.OvertimeAdjusted {
		t.Fatalf("status = %q, want adjusted", balanced.Status)
	}
	if balanced.DeltaSeconds != 0 {
		t.Fatalf("delta after balance = %d, want 0", balanced.DeltaSeconds)
	}
	if balanced.WorkedSeconds != 40*3600 {
		t.Fatalf("worked after balance = %d, want %d", balanced.WorkedSeconds, 40*3600)
	}

	shifted, _ := store.GetPunch(ctx, tc.Scope(), last.ID)
	wantOut := last.CheckOut.Add(-2 * time.Hour)
	if !shifted.CheckOut.Equal(wantOut) {
		t.Fatalf("shifted check-out = %v, want %v", shifted.CheckOut, wantOut)
	}
	if !strings.Contains(shifted.AdminNotes, "check-out moved from") {
		t.Fatalf("admin notes missing audit line: %q", shifted.AdminNotes)
	}
}

func TestWeekBoundsMondayStart(t *testing.T) {
	// a Wednesday resolves to the Monday of its week
	wed := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)
	start, end := dateutil.WeekBounds(wed, time.UTC)
	if !start.Equal(refWeek) {
		t.Fatalf("week start = %v, want %v", start, refWeek)
	}
	if !end.Equal(refWeek.AddDate(0, 0, 6)) {
		t.Fatalf("week end = %v", end)
	}
}
