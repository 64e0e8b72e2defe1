package models

import (
	"time"

	"github.com/google/uuid"
)

// BreakKind identifies the reason for an intra-shift pause
type BreakKind string

const (
	BreakRest    BreakKind = "rest"
	BreakLunch   BreakKind = "lunch"
	BreakMedical BreakKind = "medical"
	BreakTravel  BreakKind = "travel"
	BreakOther   BreakKind = "other"
)

// Valid reports whether the kind is a known value
func (k BreakKind) Valid() bool {
	switch k {
	case BreakRest, BreakLunch, BreakMedical, BreakTravel, BreakOther:
		return true
	}
	return false
}

// Break is a pause within an open punch. End is nil while active.
type Break struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`
	PunchID    uuid.UUID `json:"punchId" db:"punch_id"`

	Kind  BreakKind  `json:"kind" db:"kind"`
	Start time.Time  `json:"start" db:"start_at"`
	End   *time.Time `json:"end,omitempty" db:"end_at"`
	Notes string     `json:"notes" db:"notes"`

	Attachment *Attachment `json:"attachment,omitempty"`
}

// IsActive reports whether the break has not ended yet
func (b *Break) IsActive() bool {
	return b.End == nil
}

// Attachment is a stored file reference on a break or leave request
type Attachment struct {
	URL      string `json:"url" db:"attachment_url"`
	Filename string `json:"filename" db:"attachment_filename"`
	MimeType string `json:"mimeType" db:"attachment_mime"`
	Size     int64  `json:"size" db:"attachment_size"`
}
