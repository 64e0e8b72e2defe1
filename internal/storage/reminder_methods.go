package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Reminder Log Methods ==========
//
// Append-only. The scheduler dedups by counting rows for the employee,
// kind and local date inside the same transaction that sends the mail.

// CreateReminderLog appends a reminder attempt record
func (s *PostgresStore) CreateReminderLog(ctx context.Context, scope tenant.Scope, l *models.ReminderLog) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if !scope.Bypass {
		l.TenantID = scope.TenantID
	}
	if l.TenantID == uuid.Nil {
		return ErrInvalidData
	}
	l.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO reminder_logs (
            id, created_at, tenant_id, employee_id, kind,
            email_to, extra_email_to, scheduled_for, sent_at, success, error_text
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.getDB().ExecContext(ctx, query,
		l.ID, l.CreatedAt, l.TenantID, l.EmployeeID, l.Kind,
		l.EmailTo, l.ExtraEmailTo, l.ScheduledFor, l.SentAt, l.Success, l.ErrorText,
	)
	return mapError(err)
}

// CountRemindersBetween counts reminders of one kind sent to the
// employee inside [from, to). Successful sends only. The caller passes
// the local-day bounds so dedup follows the tenant's calendar, not UTC.
func (s *PostgresStore) CountRemindersBetween(ctx context.Context, scope tenant.Scope, employeeID uuid.UUID, kind models.ReminderKind, from, to time.Time) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}

	query := `
        SELECT COUNT(*) FROM reminder_logs
        WHERE employee_id = $1 AND kind = $2 AND success = true
          AND sent_at >= $3 AND sent_at < $4`
	args := []interface{}{employeeID, kind, from, to}
	if !scope.Bypass {
		query += ` AND tenant_id = $5`
		args = append(args, scope.TenantID)
	}

	var total int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}
