package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies an administrative role. Regular employees have no role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether the role is a known value
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Employee represents a worker account within a tenant
type Employee struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
	FullName string `json:"fullName" db:"full_name"`

	PasswordHash string `json:"-" db:"password_hash"`

	// Role is nil for regular employees
	Role     *Role `json:"role,omitempty" db:"role"`
	IsActive bool  `json:"isActive" db:"is_active"`

	WeeklyHours int `json:"weeklyHours" db:"weekly_hours"`

	// CenterID doubles as admin scope: an admin with a center only
	// manages employees of that center.
	CenterID   *uuid.UUID `json:"centerId,omitempty" db:"center_id"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty" db:"category_id"`

	HireDate        *time.Time `json:"hireDate,omitempty" db:"hire_date"`
	TerminationDate *time.Time `json:"terminationDate,omitempty" db:"termination_date"`

	ThemePreference string `json:"themePreference" db:"theme_preference"`

	// Reminder preferences
	RemindersEnabled bool    `json:"remindersEnabled" db:"reminders_enabled"`
	ReminderDays     string  `json:"reminderDays" db:"reminder_days"` // "mon,tue,..."
	ReminderEntryAt  *string `json:"reminderEntryAt,omitempty" db:"reminder_entry_at"`
	ReminderExitAt   *string `json:"reminderExitAt,omitempty" db:"reminder_exit_at"`
	ReminderExtraTo  string  `json:"reminderExtraTo,omitempty" db:"reminder_extra_to"`
}

// IsAdmin reports whether the employee holds any administrative role
func (e *Employee) IsAdmin() bool {
	return e.Role != nil && (*e.Role == RoleAdmin || *e.Role == RoleSuperAdmin)
}

// IsSuperAdmin reports whether the employee is a super admin
func (e *Employee) IsSuperAdmin() bool {
	return e.Role != nil && *e.Role == RoleSuperAdmin
}

// ReminderDaySet returns the configured reminder weekdays as a set of
// lowercase three-letter names.
func (e *Employee) ReminderDaySet() map[string]bool {
	set := make(map[string]bool)
	for _, d := range strings.Split(e.ReminderDays, ",") {
		d = strings.TrimSpace(strings.ToLower(d))
		if d != "" {
			set[d] = true
		}
	}
	return set
}

// Center is a work location within a tenant
type Center struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`
	Name     string    `json:"name" db:"name"`
}

// Category is a professional category within a tenant
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`
	Name     string    `json:"name" db:"name"`
}
