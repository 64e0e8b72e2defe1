package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Employee Methods ==========

const employeeColumns = `
        id, created_at, updated_at, tenant_id, username, email, full_name,
        password_hash, role, is_active, weekly_hours, center_id, category_id,
        hire_date, termination_date, theme_preference,
        reminders_enabled, reminder_days, reminder_entry_at, reminder_exit_at,
        reminder_extra_to`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	e := &models.Employee{}
	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.TenantID, &e.Username, &e.Email,
		&e.FullName, &e.PasswordHash, &e.Role, &e.IsActive, &e.WeeklyHours,
		&e.CenterID, &e.CategoryID, &e.HireDate, &e.TerminationDate,
		&e.ThemePreference, &e.RemindersEnabled, &e.ReminderDays,
		&e.ReminderEntryAt, &e.ReminderExitAt, &e.ReminderExtraTo,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// CreateEmployee creates a new employee. The tenant_id is stamped from
// the scope, never from the model.
func (s *PostgresStore) CreateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if !scope.Bypass {
		e.TenantID = scope.TenantID
	}
	if e.TenantID == uuid.Nil {
		return ErrInvalidData
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	query := `
        INSERT INTO employees (` + employeeColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
                  $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := s.getDB().ExecContext(ctx, query,
		e.ID, e.CreatedAt, e.UpdatedAt, e.TenantID, e.Username, e.Email,
		e.FullName, e.PasswordHash, e.Role, e.IsActive, e.WeeklyHours,
		e.CenterID, e.CategoryID, e.HireDate, e.TerminationDate,
		e.ThemePreference, e.RemindersEnabled, e.ReminderDays,
		e.ReminderEntryAt, e.ReminderExitAt, e.ReminderExtraTo,
	)
	return mapError(err)
}

// GetEmployee gets an employee by ID within the scope's tenant. A row
// belonging to another tenant comes back as ErrNotFound.
func (s *PostgresStore) GetEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanEmployee(s.getDB().QueryRowContext(ctx, query, args...))
}

// GetEmployeeByUsername gets an employee by username within the tenant
func (s *PostgresStore) GetEmployeeByUsername(ctx context.Context, scope tenant.Scope, username string) (*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE username = $1`
	args := []interface{}{username}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanEmployee(s.getDB().QueryRowContext(ctx, query, args...))
}

// LockEmployee re-reads an employee with a row lock. Only meaningful
// inside a transaction.
func (s *PostgresStore) LockEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` FOR UPDATE`

	return scanEmployee(s.getDB().QueryRowContext(ctx, query, args...))
}

// UpdateEmployee updates an employee. The row must belong to the
// scope's tenant.
func (s *PostgresStore) UpdateEmployee(ctx context.Context, scope tenant.Scope, e *models.Employee) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE employees
        SET updated_at = $2, username = $3, email = $4, full_name = $5,
            password_hash = $6, role = $7, is_active = $8, weekly_hours = $9,
            center_id = $10, category_id = $11, hire_date = $12,
            termination_date = $13, theme_preference = $14,
            reminders_enabled = $15, reminder_days = $16,
            reminder_entry_at = $17, reminder_exit_at = $18,
            reminder_extra_to = $19
        WHERE id = $1`
	args := []interface{}{
		e.ID, e.UpdatedAt, e.Username, e.Email, e.FullName,
		e.PasswordHash, e.Role, e.IsActive, e.WeeklyHours,
		e.CenterID, e.CategoryID, e.HireDate, e.TerminationDate,
		e.ThemePreference, e.RemindersEnabled, e.ReminderDays,
		e.ReminderEntryAt, e.ReminderExitAt, e.ReminderExtraTo,
	}
	if !scope.Bypass {
		query += ` AND tenant_id = $20`
		args = append(args, scope.TenantID)
	}

	result, err := s.getDB().ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEmployee deletes an employee and, via cascade, their punches,
// breaks, statuses and requests.
func (s *PostgresStore) DeleteEmployee(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `DELETE FROM employees WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	result, err := s.getDB().ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEmployees lists employees with filters and pagination
func (s *PostgresStore) ListEmployees(ctx context.Context, scope tenant.Scope, f EmployeeFilters, limit, offset int) ([]*models.Employee, int64, error) {
	if err := checkScope(scope); err != nil {
		return nil, 0, err
	}

	where := `WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !scope.Bypass {
		where += ` AND tenant_id = ` + arg(scope.TenantID)
	}
	if f.CenterID != nil {
		where += ` AND center_id = ` + arg(*f.CenterID)
	}
	if f.CategoryID != nil {
		where += ` AND category_id = ` + arg(*f.CategoryID)
	}
	if f.ActiveOnly {
		where += ` AND is_active = true`
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where += ` AND (username ILIKE ` + p + ` OR full_name ILIKE ` + p + `)`
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM employees `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + employeeColumns + ` FROM employees ` + where +
		` ORDER BY full_name LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

// CountEmployees counts employees in the tenant (plan cap checks)
func (s *PostgresStore) CountEmployees(ctx context.Context, scope tenant.Scope) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM employees`
	var args []interface{}
	if !scope.Bypass {
		query += ` WHERE tenant_id = $1`
		args = append(args, scope.TenantID)
	}

	var total int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// ListReminderEmployees returns active employees with reminders enabled
// whose tenant plan includes email notifications. The scheduler calls
// this with a bypass scope to cover every tenant.
func (s *PostgresStore) ListReminderEmployees(ctx context.Context, scope tenant.Scope) ([]*models.Employee, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `
        SELECT e.id, e.created_at, e.updated_at, e.tenant_id, e.username,
               e.email, e.full_name, e.password_hash, e.role, e.is_active,
               e.weekly_hours, e.center_id, e.category_id, e.hire_date,
               e.termination_date, e.theme_preference, e.reminders_enabled,
               e.reminder_days, e.reminder_entry_at, e.reminder_exit_at,
               e.reminder_extra_to
        FROM employees e
        JOIN tenants t ON t.id = e.tenant_id
        WHERE e.reminders_enabled = true
          AND e.is_active = true
          AND t.is_active = true
          AND t.plan = 'pro'`
	var args []interface{}
	if !scope.Bypass {
		query += ` AND e.tenant_id = $1`
		args = append(args, scope.TenantID)
	}

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
