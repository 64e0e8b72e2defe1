package breaks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage/storagetest"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

func newTestTracker() (*Tracker, *storagetest.Store) {
	store := storagetest.New()
	return NewTracker(store, nil), store
}

func openPunch(t *testing.T, store *storagetest.Store, tc *tenant.Context) *models.Punch {
	t.Helper()
	punch := &models.Punch{
		EmployeeID: tc.EmployeeID,
		Date:       dateutil.Today(time.UTC),
		CheckIn:    time.Now().UTC(),
	}
	if err := store.CreatePunch(context.Background(), tc.Scope(), punch); err != nil {
		t.Fatalf("CreatePunch: %v", err)
	}
	return punch
}

func TestStartRequiresOpenPunch(t *testing.T) {
	tracker, _ := newTestTracker()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	if _, err := tracker.Start(context.Background(), tc, models.BreakRest, ""); !errors.Is(err, ErrNoOpenPunch) {
		t.Fatalf("Start err = %v, want ErrNoOpenPunch", err)
	}
}

func TestStartRejectsUnknownKind(t *testing.T) {
	tracker, _ := newTestTracker()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	if _, err := tracker.Start(context.Background(), tc, "siesta", ""); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("Start err = %v, want ErrInvalidKind", err)
	}
}

func TestStartAndEnd(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	punch := openPunch(t, store, tc)

	br, err := tracker.Start(ctx, tc, models.BreakLunch, "<i>lunch</i>")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if br.PunchID != punch.ID {
		t.Fatal("break not linked to open punch")
	}
	if br.Notes != "lunch" {
		t.Fatalf("notes = %q, want sanitized", br.Notes)
	}

	if _, err := tracker.Start(ctx, tc, models.BreakRest, ""); !errors.Is(err, ErrBreakActive) {
		t.Fatalf("second Start err = %v, want ErrBreakActive", err)
	}

	ended, err := tracker.End(ctx, tc)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.End == nil {
		t.Fatal("break should be ended")
	}

	if _, err := tracker.End(ctx, tc); !errors.Is(err, ErrNotActive) {
		t.Fatalf("second End err = %v, want ErrNotActive", err)
	}
}

func TestActiveReturnsNilWhenNone(t *testing.T) {
	tracker, _ := newTestTracker()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}

	br, err := tracker.Active(context.Background(), tc)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if br != nil {
		t.Fatalf("active = %+v, want nil", br)
	}
}

func TestAttachWithoutStorageConfigured(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	openPunch(t, store, tc)

	br, err := tracker.Start(ctx, tc, models.BreakMedical, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	pdf := append([]byte("%PDF-1.4"), make([]byte, 64)...)
	if _, err := tracker.Attach(ctx, tc, br.ID, "note.pdf", pdf); !errors.Is(err, attachment.ErrUnavailable) {
		t.Fatalf("Attach err = %v, want ErrUnavailable", err)
	}
}

func TestAttachOwnershipCheck(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()
	tc := &tenant.Context{TenantID: uuid.New(), EmployeeID: uuid.New()}
	openPunch(t, store, tc)

	br, err := tracker.Start(ctx, tc, models.BreakMedical, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	stranger := &tenant.Context{TenantID: tc.TenantID, EmployeeID: uuid.New()}
	if _, err := tracker.Attach(ctx, stranger, br.ID, "note.pdf", []byte("%PDF-1.4")); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Attach err = %v, want ErrNotOwner", err)
	}
}
