package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Overtime Methods ==========

const overtimeColumns = `
        id, created_at, updated_at, tenant_id, employee_id,
        week_start, week_end, worked_seconds, contract_seconds,
        delta_seconds, status, decided_by, decided_at, notes`

func scanOvertimeEntry(row rowScanner) (*models.OvertimeEntry, error) {
	e := &models.OvertimeEntry{}
	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.TenantID, &e.EmployeeID,
		&e.WeekStart, &e.WeekEnd, &e.WorkedSeconds, &e.ContractSeconds,
		&e.DeltaSeconds, &e.Status, &e.DecidedBy, &e.DecidedAt, &e.Notes,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// CreateOvertimeEntry creates a weekly overtime entry. The unique key
// (tenant, employee, week_start) surfaces a rerun as ErrDuplicateKey.
func (s *PostgresStore) CreateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error {
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
        INSERT INTO overtime_entries (` + overtimeColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.getDB().ExecContext(ctx, query,
		e.ID, e.CreatedAt, e.UpdatedAt, e.TenantID, e.EmployeeID,
		e.WeekStart, e.WeekEnd, e.WorkedSeconds, e.ContractSeconds,
		e.DeltaSeconds, e.Status, e.DecidedBy, e.DecidedAt, e.Notes,
	)
	return mapError(err)
}

// GetOvertimeEntry gets an overtime entry by ID
func (s *PostgresStore) GetOvertimeEntry(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.OvertimeEntry, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + overtimeColumns + ` FROM overtime_entries WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanOvertimeEntry(s.getDB().QueryRowContext(ctx, query, args...))
}

// GetOvertimeEntryForWeek gets the entry for one employee week
func (s *PostgresStore) GetOvertimeEntryForWeek(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, weekStart time.Time) (*models.OvertimeEntry, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + overtimeColumns + ` FROM overtime_entries
        WHERE employee_id = $1 AND week_start = $2`
	args := []interface{}{employeeID, weekStart}
	if !scope.Bypass {
		query += ` AND tenant_id = $3`
		args = append(args, scope.TenantID)
	}

	return scanOvertimeEntry(s.getDB().QueryRowContext(ctx, query, args...))
}

// UpdateOvertimeEntry updates an overtime entry
func (s *PostgresStore) UpdateOvertimeEntry(ctx context.Context, scope tenant.Scope, e *models.OvertimeEntry) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE overtime_entries
        SET updated_at = $2, worked_seconds = $3, contract_seconds = $4,
            delta_seconds = $5, status = $6, decided_by = $7,
            decided_at = $8, notes = $9
        WHERE id = $1`
	args := []interface{}{
		e.ID, e.UpdatedAt, e.WorkedSeconds, e.ContractSeconds,
		e.DeltaSeconds, e.Status, e.DecidedBy, e.DecidedAt, e.Notes,
	}
	if !scope.Bypass {
		query += ` AND tenant_id = $10`
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

// ListOvertimeEntries lists overtime entries with filters, newest week
// first.
func (s *PostgresStore) ListOvertimeEntries(ctx context.Context, scope tenant.Scope, f OvertimeFilters, limit, offset int) ([]*models.OvertimeEntry, int64, error) {
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
	if f.EmployeeID != nil {
		where += ` AND employee_id = ` + arg(*f.EmployeeID)
	}
	if f.Status != nil {
		where += ` AND status = ` + arg(*f.Status)
	}
	if f.WeekStart != nil {
		where += ` AND week_start = ` + arg(*f.WeekStart)
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM overtime_entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + overtimeColumns + ` FROM overtime_entries ` + where +
		` ORDER BY week_start DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.OvertimeEntry
	for rows.Next() {
		e, err := scanOvertimeEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
