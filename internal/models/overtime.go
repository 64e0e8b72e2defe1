package models

import (
	"time"

	"github.com/google/uuid"
)

// OvertimeStatus is the lifecycle state of a weekly overtime entry
type OvertimeStatus string

const (
	OvertimePending  OvertimeStatus = "pending"
	OvertimeApproved OvertimeStatus = "approved"
	OvertimeAdjusted OvertimeStatus = "adjusted"
	OvertimeRejected OvertimeStatus = "rejected"
)

// Valid reports whether the status is a known value
func (s OvertimeStatus) Valid() bool {
	switch s {
	case OvertimePending, OvertimeApproved, OvertimeAdjusted, OvertimeRejected:
		return true
	}
	return false
}

// OvertimeEntry compares worked against contracted seconds for one
// employee week. Unique per (tenant, employee, week_start).
type OvertimeEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`

	WeekStart time.Time `json:"weekStart" db:"week_start"` // Monday
	WeekEnd   time.Time `json:"weekEnd" db:"week_end"`     // Sunday

	WorkedSeconds   int64 `json:"workedSeconds" db:"worked_seconds"`
	ContractSeconds int64 `json:"contractSeconds" db:"contract_seconds"`
	DeltaSeconds    int64 `json:"deltaSeconds" db:"delta_seconds"`

	Status    OvertimeStatus `json:"status" db:"status"`
	DecidedBy *uuid.UUID     `json:"decidedBy,omitempty" db:"decided_by"`
	DecidedAt *time.Time     `json:"decidedAt,omitempty" db:"decided_at"`
	Notes     string         `json:"notes" db:"notes"`
}
