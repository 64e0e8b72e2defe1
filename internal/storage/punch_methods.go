package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Punch Methods ==========

const punchColumns = `
        id, created_at, updated_at, tenant_id, employee_id, date,
        check_in, check_out, notes, admin_notes, modified_by`

func scanPunch(row rowScanner) (*models.Punch, error) {
	p := &models.Punch{}
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.TenantID, &p.EmployeeID,
		&p.Date, &p.CheckIn, &p.CheckOut, &p.Notes, &p.AdminNotes, &p.ModifiedBy,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// CreatePunch creates a new punch record
func (s *PostgresStore) CreatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if !scope.Bypass {
		p.TenantID = scope.TenantID
	}
	if p.TenantID == uuid.Nil {
		return ErrInvalidData
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
        INSERT INTO punches (` + punchColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.getDB().ExecContext(ctx, query,
		p.ID, p.CreatedAt, p.UpdatedAt, p.TenantID, p.EmployeeID, p.Date,
		p.CheckIn, p.CheckOut, p.Notes, p.AdminNotes, p.ModifiedBy,
	)
	return mapError(err)
}

// GetPunch gets a punch by ID within the scope's tenant
func (s *PostgresStore) GetPunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + punchColumns + ` FROM punches WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanPunch(s.getDB().QueryRowContext(ctx, query, args...))
}

// GetOpenPunch gets the employee's open punch, ErrNotFound when closed.
// At most one open punch exists per employee; the newest wins if legacy
// data violates that.
func (s *PostgresStore) GetOpenPunch(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + punchColumns + ` FROM punches
        WHERE employee_id = $1 AND check_out IS NULL`
	args := []interface{}{employeeID}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY check_in DESC LIMIT 1`

	return scanPunch(s.getDB().QueryRowContext(ctx, query, args...))
}

// UpdatePunch updates a punch
func (s *PostgresStore) UpdatePunch(ctx context.Context, scope tenant.Scope, p *models.Punch) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE punches
        SET updated_at = $2, date = $3, check_in = $4, check_out = $5,
            notes = $6, admin_notes = $7, modified_by = $8
        WHERE id = $1`
	args := []interface{}{
		p.ID, p.UpdatedAt, p.Date, p.CheckIn, p.CheckOut,
		p.Notes, p.AdminNotes, p.ModifiedBy,
	}
	if !scope.Bypass {
		query += ` AND tenant_id = $9`
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

// DeletePunch deletes a punch and, via cascade, its seals and breaks
func (s *PostgresStore) DeletePunch(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `DELETE FROM punches WHERE id = $1`
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

// ListPunches lists punches with filters, newest first
func (s *PostgresStore) ListPunches(ctx context.Context, scope tenant.Scope, f PunchFilters, limit, offset int) ([]*models.Punch, int64, error) {
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
	if f.From != nil {
		where += ` AND date >= ` + arg(*f.From)
	}
	if f.To != nil {
		where += ` AND date <= ` + arg(*f.To)
	}
	if f.OpenOnly {
		where += ` AND check_out IS NULL`
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM punches `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + punchColumns + ` FROM punches ` + where +
		` ORDER BY date DESC, check_in DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var punches []*models.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, 0, err
		}
		punches = append(punches, p)
	}
	return punches, total, rows.Err()
}

// ListOpenPunchesForDate returns open punches dated on the given local
// date. The auto-close job runs it with a bypass scope.
func (s *PostgresStore) ListOpenPunchesForDate(ctx context.Context, scope tenant.Scope, date time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + punchColumns + ` FROM punches
        WHERE date = $1 AND check_out IS NULL`
	args := []interface{}{date}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY check_in`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var punches []*models.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}

// ListClosedPunchesBetween returns the employee's closed punches dated
// within [from, to], oldest first. Used by the overtime aggregator.
func (s *PostgresStore) ListClosedPunchesBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + punchColumns + ` FROM punches
        WHERE employee_id = $1 AND date >= $2 AND date <= $3
          AND check_out IS NOT NULL`
	args := []interface{}{employeeID, from, to}
	if !scope.Bypass {
		query += ` AND tenant_id = $4`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY date, check_in`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var punches []*models.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}
