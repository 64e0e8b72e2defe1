package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Break Methods ==========
//
// Attachment columns are nullable as a group: a break either has a full
// attachment or none.

const breakColumns = `
        id, created_at, tenant_id, employee_id, punch_id, kind,
        start_at, end_at, notes,
        attachment_url, attachment_filename, attachment_mime, attachment_size`

func scanBreak(row rowScanner) (*models.Break, error) {
	b := &models.Break{}
	var attURL, attName, attMime sql.NullString
	var attSize sql.NullInt64
	err := row.Scan(
		&b.ID, &b.CreatedAt, &b.TenantID, &b.EmployeeID, &b.PunchID, &b.Kind,
		&b.Start, &b.End, &b.Notes,
		&attURL, &attName, &attMime, &attSize,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if attURL.Valid {
		b.Attachment = &models.Attachment{
			URL:      attURL.String,
			Filename: attName.String,
			MimeType: attMime.String,
			Size:     attSize.Int64,
		}
	}
	return b, nil
}

func breakAttachmentArgs(b *models.Break) (interface{}, interface{}, interface{}, interface{}) {
	if b.Attachment == nil {
		return nil, nil, nil, nil
	}
	return b.Attachment.URL, b.Attachment.Filename, b.Attachment.MimeType, b.Attachment.Size
}

// CreateBreak creates a new break record
func (s *PostgresStore) CreateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if !scope.Bypass {
		b.TenantID = scope.TenantID
	}
	if b.TenantID == uuid.Nil {
		return ErrInvalidData
	}
	b.CreatedAt = time.Now().UTC()

	url, name, mime, size := breakAttachmentArgs(b)
	query := `
        INSERT INTO breaks (` + breakColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		b.ID, b.CreatedAt, b.TenantID, b.EmployeeID, b.PunchID, b.Kind,
		b.Start, b.End, b.Notes, url, name, mime, size,
	)
	return mapError(err)
}

// GetBreak gets a break by ID within the scope's tenant
func (s *PostgresStore) GetBreak(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + breakColumns + ` FROM breaks WHERE id = $1`
	args := []interface{}{id}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return scanBreak(s.getDB().QueryRowContext(ctx, query, args...))
}

// GetActiveBreak gets the employee's running break, ErrNotFound when
// none is open.
func (s *PostgresStore) GetActiveBreak(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID) (*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + breakColumns + ` FROM breaks
        WHERE employee_id = $1 AND end_at IS NULL`
	args := []interface{}{employeeID}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY start_at DESC LIMIT 1`

	return scanBreak(s.getDB().QueryRowContext(ctx, query, args...))
}

// UpdateBreak updates a break (close, edit notes, attach file)
func (s *PostgresStore) UpdateBreak(ctx context.Context, scope tenant.Scope, b *models.Break) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	url, name, mime, size := breakAttachmentArgs(b)
	query := `
        UPDATE breaks
        SET kind = $2, start_at = $3, end_at = $4, notes = $5,
            attachment_url = $6, attachment_filename = $7,
            attachment_mime = $8, attachment_size = $9
        WHERE id = $1`
	args := []interface{}{b.ID, b.Kind, b.Start, b.End, b.Notes, url, name, mime, size}
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

// ListBreaksForPunch lists a punch's breaks in start order
func (s *PostgresStore) ListBreaksForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.Break, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + breakColumns + ` FROM breaks WHERE punch_id = $1`
	args := []interface{}{punchID}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY start_at`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaks []*models.Break
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}
