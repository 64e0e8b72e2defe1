package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Leave Request Methods ==========

const leaveColumns = `
        id, created_at, updated_at, tenant_id, employee_id, kind,
        start_date, end_date, reason, admin_notes, status,
        approved_by, decided_at, read_by_admin, read_at,
        attachment_url, attachment_filename, attachment_mime, attachment_size`

func scanLeaveRequest(row rowScanner) (*models.LeaveRequest, error) {
	r := &models.LeaveRequest{}
	var attURL, attName, attMime sql.NullString
	var attSize sql.NullInt64
	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.TenantID, &r.EmployeeID, &r.Kind,
		&r.StartDate, &r.EndDate, &r.Reason, &r.AdminNotes, &r.Status,
		&r.ApprovedBy, &r.DecidedAt, &r.ReadByAdmin, &r.ReadAt,
		&attURL, &attName, &attMime, &attSize,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if attURL.Valid {
		r.Attachment = &models.Attachment{
			URL:      attURL.String,
			Filename: attName.String,
			MimeType: attMime.String,
			Size:     attSize.Int64,
		}
	}
	return r, nil
}

func leaveAttachmentArgs(r *models.LeaveRequest) (interface{}, interface{}, interface{}, interface{}) {
	if r.Attachment == nil {
		return nil, nil, nil, nil
	}
	return r.Attachment.URL, r.Attachment.Filename, r.Attachment.MimeType, r.Attachment.Size
}

// CreateLeaveRequest creates a new leave request
func (s *PostgresStore) CreateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if !scope.Bypass {
		r.TenantID = scope.TenantID
	}
	if r.TenantID == uuid.Nil {
		return ErrInvalidData
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	url, name, mime, size := leaveAttachmentArgs(r)
	query := `
        INSERT INTO leave_requests (` + leaveColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
                  $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := s.getDB().ExecContext(ctx, query,
		r.ID, r.CreatedAt, r.UpdatedAt, r.TenantID, r.EmployeeID, r.Kind,
		r.StartDate, r.EndDate, r.Reason, r.AdminNotes, r.Status,
		r.ApprovedBy, r.DecidedAt, r.ReadByAdmin, r.ReadAt,
		url, name, mime, size,
	)
	return mapError(err)
}

// GetLeaveRequest gets a leave request by ID within the scope's tenant
func (s *PostgresStore) GetLeaveRequest(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.LeaveRequest, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanLeaveRequest(s.getDB().QueryRowContext(ctx, query, args...))
}

// UpdateLeaveRequest updates a leave request
func (s *PostgresStore) UpdateLeaveRequest(ctx context.Context, scope tenant.Scope, r *models.LeaveRequest) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()

	url, name, mime, size := leaveAttachmentArgs(r)
	query := `
        UPDATE leave_requests
        SET updated_at = $2, kind = $3, start_date = $4, end_date = $5,
            reason = $6, admin_notes = $7, status = $8, approved_by = $9,
            decided_at = $10, read_by_admin = $11, read_at = $12,
            attachment_url = $13, attachment_filename = $14,
            attachment_mime = $15, attachment_size = $16
        WHERE id = $1`
	args := []interface{}{
		r.ID, r.UpdatedAt, r.Kind, r.StartDate, r.EndDate,
		r.Reason, r.AdminNotes, r.Status, r.ApprovedBy,
		r.DecidedAt, r.ReadByAdmin, r.ReadAt,
		url, name, mime, size,
	}
	if !scope.Bypass {
		query += ` AND tenant_id = $17`
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

// ListLeaveRequests lists leave requests with filters, newest first
func (s *PostgresStore) ListLeaveRequests(ctx context.Context, scope tenant.Scope, f LeaveFilters, limit, offset int) ([]*models.LeaveRequest, int64, error) {
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
	if f.UnreadOnly {
		where += ` AND read_by_admin = false`
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM leave_requests `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leaveColumns + ` FROM leave_requests ` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []*models.LeaveRequest
	for rows.Next() {
		r, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, r)
	}
	return requests, total, rows.Err()
}

// CountPendingLeaveRequests counts undecided requests (admin badge)
func (s *PostgresStore) CountPendingLeaveRequests(ctx context.Context, scope tenant.Scope) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'`
	var args []interface{}
	if !scope.Bypass {
		query += ` AND tenant_id = $1`
		args = append(args, scope.TenantID)
	}

	var total int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// MarkLeaveRequestsRead flags the tenant's unread requests as seen by
// an admin. No-op when everything is already read.
func (s *PostgresStore) MarkLeaveRequestsRead(ctx context.Context, scope tenant.Scope, readAt time.Time) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `
        UPDATE leave_requests
        SET read_by_admin = true, read_at = $1, updated_at = $1
        WHERE read_by_admin = false`
	args := []interface{}{readAt.UTC()}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	_, err := s.getDB().ExecContext(ctx, query, args...)
	return mapError(err)
}

// ========== Daily Status Methods ==========

const dailyStatusColumns = `
        id, created_at, updated_at, tenant_id, employee_id, date,
        status, source_kind, notes, admin_notes`

func scanDailyStatus(row rowScanner) (*models.DailyStatus, error) {
	d := &models.DailyStatus{}
	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.TenantID, &d.EmployeeID,
		&d.Date, &d.Status, &d.SourceKind, &d.Notes, &d.AdminNotes,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

// UpsertDailyStatus writes the per-day projection row, replacing any
// previous status for the same (tenant, employee, date).
func (s *PostgresStore) UpsertDailyStatus(ctx context.Context, scope tenant.Scope, d *models.DailyStatus) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if !scope.Bypass {
		d.TenantID = scope.TenantID
	}
	if d.TenantID == uuid.Nil {
		return ErrInvalidData
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
        INSERT INTO daily_statuses (` + dailyStatusColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (tenant_id, employee_id, date) DO UPDATE
        SET updated_at = EXCLUDED.updated_at,
            status = EXCLUDED.status,
            source_kind = EXCLUDED.source_kind,
            notes = EXCLUDED.notes,
            admin_notes = EXCLUDED.admin_notes`

	_, err := s.getDB().ExecContext(ctx, query,
		d.ID, d.CreatedAt, d.UpdatedAt, d.TenantID, d.EmployeeID,
		d.Date, d.Status, d.SourceKind, d.Notes, d.AdminNotes,
	)
	return mapError(err)
}

// GetDailyStatus gets the status row for one employee day
func (s *PostgresStore) GetDailyStatus(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, date time.Time) (*models.DailyStatus, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + dailyStatusColumns + ` FROM daily_statuses
        WHERE employee_id = $1 AND date = $2`
	args := []interface{}{employeeID, date}
	if !scope.Bypass {
		query += ` AND tenant_id = $3`
		args = append(args, scope.TenantID)
	}

	return scanDailyStatus(s.getDB().QueryRowContext(ctx, query, args...))
}

// ListDailyStatuses lists an employee's status rows in [from, to]
func (s *PostgresStore) ListDailyStatuses(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, from, to time.Time) ([]*models.DailyStatus, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + dailyStatusColumns + ` FROM daily_statuses
        WHERE employee_id = $1 AND date >= $2 AND date <= $3`
	args := []interface{}{employeeID, from, to}
	if !scope.Bypass {
		query += ` AND tenant_id = $4`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY date`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []*models.DailyStatus
	for rows.Next() {
		d, err := scanDailyStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, d)
	}
	return statuses, rows.Err()
}

// DeleteDailyStatus deletes a status row
func (s *PostgresStore) DeleteDailyStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `DELETE FROM daily_statuses WHERE id = $1`
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
