package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaveKind identifies the type of absence being requested
type LeaveKind string

const (
	LeaveVacation    LeaveKind = "vacation"
	LeaveMedical     LeaveKind = "medical"
	LeaveJustified   LeaveKind = "justified_absence"
	LeaveUnjustified LeaveKind = "unjustified_absence"
	LeaveSpecial     LeaveKind = "special"
)

// Valid reports whether the kind is a known value
func (k LeaveKind) Valid() bool {
	switch k {
	case LeaveVacation, LeaveMedical, LeaveJustified, LeaveUnjustified, LeaveSpecial:
		return true
	}
	return false
}

// LeaveStatus is the lifecycle state of a leave request
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// Valid reports whether the status is a known value
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeavePending, LeaveApproved, LeaveRejected, LeaveCancelled:
		return true
	}
	return false
}

// LeaveRequest is an employee's request for vacation or absence.
// StartDate and EndDate are inclusive calendar dates.
type LeaveRequest struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`

	Kind      LeaveKind `json:"kind" db:"kind"`
	StartDate time.Time `json:"startDate" db:"start_date"`
	EndDate   time.Time `json:"endDate" db:"end_date"`

	Reason     string `json:"reason" db:"reason"`
	AdminNotes string `json:"adminNotes" db:"admin_notes"`

	Status     LeaveStatus `json:"status" db:"status"`
	ApprovedBy *uuid.UUID  `json:"approvedBy,omitempty" db:"approved_by"`
	DecidedAt  *time.Time  `json:"decidedAt,omitempty" db:"decided_at"`

	ReadByAdmin bool       `json:"readByAdmin" db:"read_by_admin"`
	ReadAt      *time.Time `json:"readAt,omitempty" db:"read_at"`

	Attachment *Attachment `json:"attachment,omitempty"`
}

// DayStatus classifies what one employee day was
type DayStatus string

const (
	DayWorked   DayStatus = "worked"
	DaySick     DayStatus = "sick"
	DayAbsent   DayStatus = "absent"
	DayVacation DayStatus = "vacation"
)

// Valid reports whether the status is a known value
func (s DayStatus) Valid() bool {
	switch s {
	case DayWorked, DaySick, DayAbsent, DayVacation:
		return true
	}
	return false
}

// Blocking reports whether the status forbids clocking in
func (s DayStatus) Blocking() bool {
	return s == DaySick || s == DayAbsent || s == DayVacation
}

// StatusForLeave maps a leave kind to the daily status it projects
func StatusForLeave(kind LeaveKind) DayStatus {
	switch kind {
	case LeaveVacation, LeaveSpecial:
		return DayVacation
	case LeaveMedical:
		return DaySick
	default:
		return DayAbsent
	}
}

// DailyStatus is the per-employee-per-day projection written by the
// leave workflow and by the clock engine on the first punch of a day.
// Unique per (tenant, employee, date).
type DailyStatus struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID   uuid.UUID `json:"tenantId" db:"tenant_id"`
	EmployeeID uuid.UUID `json:"employeeId" db:"employee_id"`

	Date   time.Time `json:"date" db:"date"`
	Status DayStatus `json:"status" db:"status"`

	// SourceKind is set when the row was projected from a leave request
	SourceKind *LeaveKind `json:"sourceKind,omitempty" db:"source_kind"`
	Notes      string     `json:"notes" db:"notes"`
	AdminNotes string     `json:"adminNotes" db:"admin_notes"`
}
