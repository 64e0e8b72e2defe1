package api

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
)

func TestVerifySealDetectsEditedPunchTimes(t *testing.T) {
	sealer, err := seal.New(config.SigningConfig{
		Keys:           map[int]string{1: "audit-test-key"},
		CurrentVersion: 1,
	})
	if err != nil {
		t.Fatalf("seal.New: %v", err)
	}
	s := &RESTServer{services: Services{Sealer: sealer}}

	checkIn := time.Date(2026, 3, 9, 9, 0, 3, 0, time.UTC)
	checkOut := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	punch := &models.Punch{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		EmployeeID: uuid.New(),
		CheckIn:    checkIn,
		CheckOut:   &checkOut,
	}

	ps, err := sealer.Seal(seal.Request{
		TenantID:   punch.TenantID,
		EmployeeID: punch.EmployeeID,
		PunchID:    punch.ID,
		Action:     models.SealCheckOut,
		Timestamp:  checkOut,
		TerminalID: "web",
	})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if err := s.verifySeal(punch, ps); err != nil {
		t.Fatalf("untouched punch failed verification: %v", err)
	}

	// an edited check-out no longer matches the sealed content
	moved := checkOut.Add(-2 * time.Hour)
	punch.CheckOut = &moved
	if err := s.verifySeal(punch, ps); !errors.Is(err, seal.ErrBadContent) {
		t.Fatalf("edited punch verification err = %v, want ErrBadContent", err)
	}

	// a check-out seal on a reopened punch is a finding too
	punch.CheckOut = nil
	if err := s.verifySeal(punch, ps); err == nil {
		t.Fatal("check-out seal on open punch passed verification")
	}
}
