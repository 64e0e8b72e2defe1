package seal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// Common errors
var (
	ErrNoKeys         = errors.New("no signing keys configured")
	ErrUnknownVersion = errors.New("unknown signing key version")
	ErrBadSignature   = errors.New("seal signature mismatch")
	ErrBadContent     = errors.New("seal content hash mismatch")
)

// Request carries everything that goes under a seal. TerminalID,
// UserAgent and RemoteIP come from the HTTP layer; the rest from the
// punch transition.
type Request struct {
	TenantID   uuid.UUID
	EmployeeID uuid.UUID
	PunchID    uuid.UUID
	Action     models.SealAction
	Timestamp  time.Time
	TerminalID string
	UserAgent  string
	RemoteIP   string
}

// Sealer signs punch transitions with versioned HMAC keys. Signing
// always uses the current version; verification accepts any version
// still present in the key map, which is what makes rotation safe.
type Sealer struct {
	keys    map[int]string
	current int
}

// New builds a Sealer from the signing configuration
func New(cfg config.SigningConfig) (*Sealer, error) {
	if len(cfg.Keys) == 0 {
		return nil, ErrNoKeys
	}
	current := cfg.CurrentVersion
	if _, ok := cfg.Keys[current]; !ok {
		return nil, fmt.Errorf("%w: current version %d", ErrUnknownVersion, current)
	}
	keys := make(map[int]string, len(cfg.Keys))
	for v, k := range cfg.Keys {
		keys[v] = k
	}
	return &Sealer{keys: keys, current: current}, nil
}

// Seal produces the tamper-evident record for one punch transition
func (s *Sealer) Seal(req Request) (*models.PunchSeal, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("invalid seal action %q", req.Action)
	}

	sealedAt := req.Timestamp.UTC().Truncate(time.Second)
	contentHash := contentHash(req, sealedAt)
	signature := s.sign(contentHash, s.current)

	return &models.PunchSeal{
		TenantID:    req.TenantID,
		PunchID:     req.PunchID,
		Action:      req.Action,
		SealedAt:    sealedAt,
		TerminalID:  req.TerminalID,
		UserAgent:   req.UserAgent,
		RemoteIP:    req.RemoteIP,
		ContentHash: contentHash,
		Signature:   signature,
		KeyVersion:  s.current,
	}, nil
}

// Verify recomputes both hash and signature for a stored seal against
// the caller's view of the sealed fields, req.Timestamp included. The
// content hash catches edits to any of them, the HMAC catches a forged
// hash.
func (s *Sealer) Verify(ps *models.PunchSeal, req Request) error {
	key, ok := s.keys[ps.KeyVersion]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, ps.KeyVersion)
	}

	want := contentHash(req, req.Timestamp.UTC().Truncate(time.Second))
	if !hmac.Equal([]byte(want), []byte(ps.ContentHash)) {
		return ErrBadContent
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(ps.ContentHash))
	sig := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(ps.Signature)) {
		return ErrBadSignature
	}
	return nil
}

// CurrentVersion returns the signing key version used for new seals
func (s *Sealer) CurrentVersion() int {
	return s.current
}

func (s *Sealer) sign(contentHash string, version int) string {
	mac := hmac.New(sha256.New, []byte(s.keys[version]))
	mac.Write([]byte(contentHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// contentHash canonicalizes the sealed fields as sorted "key:value"
// pairs joined with "|", then hashes. The key order is fixed by the
// sort so old seals stay verifiable.
func contentHash(req Request, sealedAt time.Time) string {
	fields := map[string]string{
		"action":        string(req.Action),
		"client_id":     req.TenantID.String(),
		"employee_id":   req.EmployeeID.String(),
		"punch_id":      req.PunchID.String(),
		"terminal_id":   req.TerminalID,
		"timestamp_utc": sealedAt.Format(time.RFC3339),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+fields[k])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
