package models

import (
	"time"

	"github.com/google/uuid"
)

// Punch is a single clock-in/clock-out record. CheckOut is nil while the
// punch is open. Date is the local calendar date of CheckIn.
type Punch struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`

	Date     time.Time  `json:"date" db:"date"`
	CheckIn  time.Time  `json:"checkIn" db:"check_in"`
	CheckOut *time.Time `json:"checkOut,omitempty" db:"check_out"`

	Notes      string     `json:"notes" db:"notes"`
	AdminNotes string     `json:"adminNotes" db:"admin_notes"`
	ModifiedBy *uuid.UUID `json:"modifiedBy,omitempty" db:"modified_by"`
}

// IsOpen reports whether the punch has no check-out yet
func (p *Punch) IsOpen() bool {
	return p.CheckOut == nil
}

// Duration returns the worked time of a closed punch, zero while open
func (p *Punch) Duration() time.Duration {
	if p.CheckOut == nil {
		return 0
	}
	return p.CheckOut.Sub(p.CheckIn)
}

// SealAction identifies which punch transition a seal covers
type SealAction string

const (
	SealCheckIn  SealAction = "check_in"
	SealCheckOut SealAction = "check_out"
)

// Valid reports whether the action is a known value
func (a SealAction) Valid() bool {
	return a == SealCheckIn || a == SealCheckOut
}

// PunchSeal is the tamper-evident record of one punch transition.
// Seal rows are append-only; there is no update path.
type PunchSeal struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID  `json:"tenantId" db:"tenant_id"`
	PunchID  uuid.UUID  `json:"punchId" db:"punch_id"`
	Action   SealAction `json:"action" db:"action"`

	SealedAt   time.Time `json:"sealedAt" db:"sealed_at"` // UTC
	TerminalID string    `json:"terminalId" db:"terminal_id"`
	UserAgent  string    `json:"userAgent" db:"user_agent"`
	RemoteIP   string    `json:"remoteIp" db:"remote_ip"`

	ContentHash string `json:"contentHash" db:"content_hash"` // 64 hex
	Signature   string `json:"signature" db:"signature"`      // 64 hex
	KeyVersion  int    `json:"keyVersion" db:"key_version"`
}
