package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// ========== Tenant Methods ==========
//
// Tenants are platform-level rows: they carry no tenant_id themselves,
// so these methods take no scope. Only the auth path, the super-admin
// surface and the CLI reach them.

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
        INSERT INTO tenants (
            id, created_at, updated_at, name, slug, plan,
            logo_url, primary_color, secondary_color, is_active
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.getDB().ExecContext(ctx, query,
		t.ID, t.CreatedAt, t.UpdatedAt, t.Name, t.Slug, t.Plan,
		t.LogoURL, t.PrimaryColor, t.SecondaryColor, t.IsActive,
	)
	return mapError(err)
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.scanTenant(ctx, `WHERE id = $1`, id)
}

// GetTenantBySlug gets a tenant by its unique slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.scanTenant(ctx, `WHERE slug = $1`, slug)
}

func (s *PostgresStore) scanTenant(ctx context.Context, where string, arg interface{}) (*models.Tenant, error) {
	query := `
        SELECT id, created_at, updated_at, name, slug, plan,
               logo_url, primary_color, secondary_color, is_active
        FROM tenants ` + where

	t := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Name, &t.Slug, &t.Plan,
		&t.LogoURL, &t.PrimaryColor, &t.SecondaryColor, &t.IsActive,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	t.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE tenants
        SET updated_at = $2, name = $3, slug = $4, plan = $5,
            logo_url = $6, primary_color = $7, secondary_color = $8, is_active = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		t.ID, t.UpdatedAt, t.Name, t.Slug, t.Plan,
		t.LogoURL, t.PrimaryColor, t.SecondaryColor, t.IsActive,
	)
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

// ListTenants lists tenants with pagination
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, updated_at, name, slug, plan,
               logo_url, primary_color, secondary_color, is_active
        FROM tenants
        ORDER BY name
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t := &models.Tenant{}
		err := rows.Scan(
			&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Name, &t.Slug, &t.Plan,
			&t.LogoURL, &t.PrimaryColor, &t.SecondaryColor, &t.IsActive,
		)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	return tenants, total, rows.Err()
}
