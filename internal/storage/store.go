package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrReferenced   = errors.New("row is referenced")
	ErrLockBusy     = errors.New("advisory lock busy")
	ErrInvalidData  = errors.New("invalid data")
)

// EmployeeFilters narrows employee listings
type EmployeeFilters struct {
	CenterID   *uuid.UUID
	CategoryID *uuid.UUID
	ActiveOnly bool
	Search     string
}

// PunchFilters narrows punch listings
type PunchFilters struct {
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	OpenOnly   bool
}

// LeaveFilters narrows leave request listings
type LeaveFilters struct {
	EmployeeID *uuid.UUID
	Status     *models.LeaveStatus
	UnreadOnly bool
}

// OvertimeFilters narrows overtime listings
type OvertimeFilters struct {
	EmployeeID *uuid.UUID
	Status     *models.OvertimeStatus
	WeekStart  *time.Time
}

// Store defines the storage interface. Every method on a tenant-scoped
// entity takes a tenant.Scope; the implementation injects the
// tenant_id predicate unless the scope carries an explicit bypass.
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Advisory locks. Employee locks are transaction-scoped and serialize
	// punch transitions; the named lock is session-scoped and serializes
	// scheduler ticks across workers.
	TryEmployeeLock(ctx context.Context, employeeID uuid.UUID) (bool, error)
	TryNamedLock(ctx context.Context, id int64) (bool, error)
	ReleaseNamedLock(ctx context.Context, id int64) error

	// Tenant methods (platform level, not tenant-scoped)
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, t *models.Tenant) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// Employee methods
	CreateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error
	GetEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error)
	GetEmployeeByUsername(ctx context.Context, scope tenant.Scope, username string) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error
	DeleteEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListEmployees(ctx context.Context, scope tenant.Scope, f EmployeeFilters, limit, offset int) ([]*models.Employee, int64, error)
	CountEmployees(ctx context.Context, scope tenant.Scope) (int64, error)
	// LockEmployee takes a row lock (FOR UPDATE); call inside a transaction
	LockEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error)
	// ListReminderEmployees returns active employees with reminders
	// enabled whose tenant plan includes email notifications.
	ListReminderEmployees(ctx context.Context, scope tenant.Scope) ([]*models.Employee, error)

	// Center methods
	CreateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error
	GetCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Center, error)
	GetCenterByName(ctx context.Context, scope tenant.Scope, name string) (*models.Center, error)
	UpdateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error
	DeleteCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListCenters(ctx context.Context, scope tenant.Scope) ([]*models.Center, error)

	// Category methods
	CreateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error
	GetCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Category, error)
	GetCategoryByName(ctx context.Context, scope tenant.Scope, name string) (*models.Category, error)
	UpdateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error
	DeleteCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListCategories(ctx context.Context, scope tenant.Scope) ([]*models.Category, error)

	// Punch methods
	CreatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error
	GetPunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Punch, error)
	GetOpenPunch(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Punch, error)
	UpdatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error
	DeletePunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListPunches(ctx context.Context, scope tenant.Scope, f PunchFilters, limit, offset int) ([]*models.Punch, int64, error)
	ListOpenPunchesForDate(ctx context.Context, scope tenant.Scope, date time.Time) ([]*models.Punch, error)
	ListClosedPunchesBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.Punch, error)

	// Seal methods. Seals are append-only.
	CreateSeal(ctx context.Context, scope tenant.Scope, s *models.PunchSeal) error
	ListSealsForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.PunchSeal, error)
	ListUnsealedPunches(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]*models.Punch, error)

	// Break methods
	CreateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error
	GetBreak(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Break, error)
	GetActiveBreak(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Break, error)
	UpdateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error
	ListBreaksForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.Break, error)

	// Leave request methods
	CreateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error
	GetLeaveRequest(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.LeaveRequest, error)
	UpdateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error
	ListLeaveRequests(ctx context.Context, scope tenant.Scope, f LeaveFilters, limit, offset int) ([]*models.LeaveRequest, int64, error)
	CountPendingLeaveRequests(ctx context.Context, scope tenant.Scope) (int64, error)
	MarkLeaveRequestsRead(ctx context.Context, scope tenant.Scope, readAt time.Time) error

	// Daily status methods
	UpsertDailyStatus(ctx context.Context, scope tenant.Scope, s *models.DailyStatus) error
	GetDailyStatus(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, date time.Time) (*models.DailyStatus, error)
	ListDailyStatuses(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.DailyStatus, error)
	DeleteDailyStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) error

	// Overtime methods
	CreateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error
	GetOvertimeEntry(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.OvertimeEntry, error)
	GetOvertimeEntryForWeek(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, weekStart time.Time) (*models.OvertimeEntry, error)
	UpdateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error
	ListOvertimeEntries(ctx context.Context, scope tenant.Scope, f OvertimeFilters, limit, offset int) ([]*models.OvertimeEntry, int64, error)

	// Reminder log methods (append-only)
	CreateReminderLog(ctx context.Context, scope tenant.Scope, l *models.ReminderLog) error
	CountRemindersBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, kind models.ReminderKind, from, to time.Time) (int64, error)

	// Close the store
	Close() error
}
