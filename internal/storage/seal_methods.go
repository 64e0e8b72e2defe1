package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Punch Seal Methods ==========
//
// Seal rows are append-only. There is deliberately no update or delete
// path; a corrected punch gets a new seal row, the old one stays as
// evidence.

const sealColumns = `
        id, created_at, tenant_id, punch_id, action, sealed_at,
        terminal_id, user_agent, remote_ip, content_hash, signature, key_version`

func scanSeal(row rowScanner) (*models.PunchSeal, error) {
	ps := &models.PunchSeal{}
	err := row.Scan(
		&ps.ID, &ps.CreatedAt, &ps.TenantID, &ps.PunchID, &ps.Action,
		&ps.SealedAt, &ps.TerminalID, &ps.UserAgent, &ps.RemoteIP,
		&ps.ContentHash, &ps.Signature, &ps.KeyVersion,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return ps, nil
}

// CreateSeal appends a seal row for a punch transition
func (s *PostgresStore) CreateSeal(ctx context.Context, scope tenant.Scope, ps *models.PunchSeal) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if ps.ID == uuid.Nil {
		ps.ID = uuid.New()
	}
	if !scope.Bypass {
		ps.TenantID = scope.TenantID
	}
	if ps.TenantID == uuid.Nil {
		return ErrInvalidData
	}
	ps.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO punch_seals (` + sealColumns + `
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.getDB().ExecContext(ctx, query,
		ps.ID, ps.CreatedAt, ps.TenantID, ps.PunchID, ps.Action,
		ps.SealedAt, ps.TerminalID, ps.UserAgent, ps.RemoteIP,
		ps.ContentHash, ps.Signature, ps.KeyVersion,
	)
	return mapError(err)
}

// ListSealsForPunch lists a punch's seals in creation order
func (s *PostgresStore) ListSealsForPunch(ctx context.Context, scope tenant.Scope, punchID uuid.UUID) ([]*models.PunchSeal, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + sealColumns + ` FROM punch_seals WHERE punch_id = $1`
	args := []interface{}{punchID}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seals []*models.PunchSeal
	for rows.Next() {
		ps, err := scanSeal(rows)
		if err != nil {
			return nil, err
		}
		seals = append(seals, ps)
	}
	return seals, rows.Err()
}

// ListUnsealedPunches returns closed punches in [from, to] that are
// missing a check-out seal. Feeds the audit report.
func (s *PostgresStore) ListUnsealedPunches(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]*models.Punch, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `
        SELECT p.id, p.created_at, p.updated_at, p.tenant_id, p.employee_id,
               p.date, p.check_in, p.check_out, p.notes, p.admin_notes, p.modified_by
        FROM punches p
        LEFT JOIN punch_seals ps
               ON ps.punch_id = p.id AND ps.action = 'check_out'
        WHERE p.date >= $1 AND p.date <= $2
          AND p.check_out IS NOT NULL
          AND ps.id IS NULL`
	args := []interface{}{from, to}
	if !scope.Bypass {
		query += ` AND p.tenant_id = $3`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY p.date, p.check_in`

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
