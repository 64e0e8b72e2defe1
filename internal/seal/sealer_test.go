package seal

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := New(config.SigningConfig{
		Keys:           map[int]string{1: "test-secret-v1"},
		CurrentVersion: 1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func testRequest() Request {
	return Request{
		TenantID:   uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		EmployeeID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		PunchID:    uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Action:     models.SealCheckIn,
		Timestamp:  time.Date(2024, 3, 15, 8, 30, 12, 0, time.UTC),
		TerminalID: "kiosk-01",
		UserAgent:  "Mozilla/5.0",
		RemoteIP:   "10.0.0.7",
	}
}

func TestSealAndVerify(t *testing.T) {
	s := testSealer(t)
	req := testRequest()

	ps, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if ps.KeyVersion != 1 {
		t.Errorf("key version = %d, want 1", ps.KeyVersion)
	}
	if len(ps.ContentHash) != 64 || len(ps.Signature) != 64 {
		t.Errorf("hash/signature lengths = %d/%d, want 64/64", len(ps.ContentHash), len(ps.Signature))
	}

	if err := s.Verify(ps, req); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestSealDeterministic(t *testing.T) {
	s := testSealer(t)
	req := testRequest()

	a, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a.ContentHash != b.ContentHash || a.Signature != b.Signature {
		t.Error("same request produced different seals")
	}
}

func TestSealSubsecondTruncation(t *testing.T) {
	s := testSealer(t)
	req := testRequest()

	a, _ := s.Seal(req)
	req.Timestamp = req.Timestamp.Add(500 * time.Millisecond)
	b, _ := s.Seal(req)

	if a.ContentHash != b.ContentHash {
		t.Error("sub-second timestamp difference changed the content hash")
	}
}

func TestVerifyDetectsTamperedField(t *testing.T) {
	s := testSealer(t)
	req := testRequest()
	ps, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	tampered := req
	tampered.Timestamp = req.Timestamp.Add(time.Hour)
	if err := s.Verify(ps, tampered); !errors.Is(err, ErrBadContent) {
		t.Errorf("Verify with edited timestamp = %v, want ErrBadContent", err)
	}

	tampered = req
	tampered.Action = models.SealCheckOut
	if err := s.Verify(ps, tampered); !errors.Is(err, ErrBadContent) {
		t.Errorf("Verify with edited action = %v, want ErrBadContent", err)
	}
}

func TestVerifyDetectsForgedSignature(t *testing.T) {
	s := testSealer(t)
	req := testRequest()
	ps, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	ps.Signature = ps.Signature[:63] + "0"
	if err := s.Verify(ps, req); !errors.Is(err, ErrBadSignature) {
		// a flipped last nibble may collide with itself; adjust
		ps.Signature = ps.Signature[:63] + "1"
		if err := s.Verify(ps, req); !errors.Is(err, ErrBadSignature) {
			t.Errorf("Verify with forged signature = %v, want ErrBadSignature", err)
		}
	}
}

func TestVerifyAfterKeyRotation(t *testing.T) {
	v1, err := New(config.SigningConfig{
		Keys:           map[int]string{1: "test-secret-v1"},
		CurrentVersion: 1,
	})
	if err != nil {
		t.Fatalf("New v1: %v", err)
	}
	req := testRequest()
	ps, err := v1.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// rotated deployment keeps the old secret for verification
	v2, err := New(config.SigningConfig{
		Keys:           map[int]string{1: "test-secret-v1", 2: "test-secret-v2"},
		CurrentVersion: 2,
	})
	if err != nil {
		t.Fatalf("New v2: %v", err)
	}

	if err := v2.Verify(ps, req); err != nil {
		t.Errorf("Verify v1 seal after rotation: %v", err)
	}

	fresh, err := v2.Seal(req)
	if err != nil {
		t.Fatalf("Seal with v2: %v", err)
	}
	if fresh.KeyVersion != 2 {
		t.Errorf("new seal key version = %d, want 2", fresh.KeyVersion)
	}
}

func TestVerifyUnknownVersion(t *testing.T) {
	s := testSealer(t)
	req := testRequest()
	ps, err := s.Seal(req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	ps.KeyVersion = 9
	if err := s.Verify(ps, req); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("Verify with unknown version = %v, want ErrUnknownVersion", err)
	}
}

func TestNewRejectsMissingCurrentKey(t *testing.T) {
	_, err := New(config.SigningConfig{
		Keys:           map[int]string{1: "a"},
		CurrentVersion: 2,
	})
	if !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("New = %v, want ErrUnknownVersion", err)
	}

	_, err = New(config.SigningConfig{})
	if !errors.Is(err, ErrNoKeys) {
		t.Errorf("New with no keys = %v, want ErrNoKeys", err)
	}
}
