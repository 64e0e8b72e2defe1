package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderKind distinguishes entry and exit punch reminders
type ReminderKind string

const (
	ReminderEntry ReminderKind = "entry"
	ReminderExit  ReminderKind = "exit"
)

// Valid reports whether the kind is a known value
func (k ReminderKind) Valid() bool {
	return k == ReminderEntry || k == ReminderExit
}

// ReminderLog records one reminder email attempt. Append-only; the
// scheduler uses it as the dedup predicate for "already sent today".
type ReminderLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`

	Kind ReminderKind `json:"kind" db:"kind"`

	EmailTo      string `json:"emailTo" db:"email_to"`
	ExtraEmailTo string `json:"extraEmailTo,omitempty" db:"extra_email_to"`

	ScheduledFor string    `json:"scheduledFor" db:"scheduled_for"` // "HH:MM" wall clock
	SentAt       time.Time `json:"sentAt" db:"sent_at"`
	Success      bool      `json:"success" db:"success"`
	ErrorText    string    `json:"errorText,omitempty" db:"error_text"`
}
