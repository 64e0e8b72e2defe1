package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Center / Category Methods ==========
//
// Centers and categories are soft dimensions for filtering employees.
// Deleting one that is still referenced fails with ErrReferenced
// (RESTRICT foreign keys in the schema).

// CreateCenter creates a new center
func (s *PostgresStore) CreateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error {
	return s.createDimension(ctx, scope, "centers", &c.ID, &c.TenantID, &c.CreatedAt, &c.UpdatedAt, c.Name)
}

// GetCenter gets a center by ID
func (s *PostgresStore) GetCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Center, error) {
	c := &models.Center{}
	err := s.getDimension(ctx, scope, "centers", `id`, id,
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCenterByName gets a center by name (CSV import lookups)
func (s *PostgresStore) GetCenterByName(ctx context.Context, scope tenant.Scope, name string) (*models.Center, error) {
	c := &models.Center{}
	err := s.getDimension(ctx, scope, "centers", `name`, name,
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCenter updates a center's name
func (s *PostgresStore) UpdateCenter(ctx context.Context, scope tenant.Scope, c *models.Center) error {
	return s.updateDimension(ctx, scope, "centers", c.ID, c.Name)
}

// DeleteCenter deletes a center; fails with ErrReferenced while
// employees point at it.
func (s *PostgresStore) DeleteCenter(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	return s.deleteDimension(ctx, scope, "centers", id)
}

// ListCenters lists the tenant's centers
func (s *PostgresStore) ListCenters(ctx context.Context, scope tenant.Scope) ([]*models.Center, error) {
	rows, err := s.listDimension(ctx, scope, "centers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var centers []*models.Center
	for rows.Next() {
		c := &models.Center{}
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name); err != nil {
			return nil, err
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// CreateCategory creates a new category
func (s *PostgresStore) CreateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error {
	return s.createDimension(ctx, scope, "categories", &c.ID, &c.TenantID, &c.CreatedAt, &c.UpdatedAt, c.Name)
}

// GetCategory gets a category by ID
func (s *PostgresStore) GetCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Category, error) {
	c := &models.Category{}
	err := s.getDimension(ctx, scope, "categories", `id`, id,
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategoryByName gets a category by name
func (s *PostgresStore) GetCategoryByName(ctx context.Context, scope tenant.Scope, name string) (*models.Category, error) {
	c := &models.Category{}
	err := s.getDimension(ctx, scope, "categories", `name`, name,
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory updates a category's name
func (s *PostgresStore) UpdateCategory(ctx context.Context, scope tenant.Scope, c *models.Category) error {
	return s.updateDimension(ctx, scope, "categories", c.ID, c.Name)
}

// DeleteCategory deletes a category; fails with ErrReferenced while
// employees point at it.
func (s *PostgresStore) DeleteCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	return s.deleteDimension(ctx, scope, "categories", id)
}

// ListCategories lists the tenant's categories
func (s *PostgresStore) ListCategories(ctx context.Context, scope tenant.Scope) ([]*models.Category, error) {
	rows, err := s.listDimension(ctx, scope, "categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.TenantID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ---- shared plumbing; centers and categories have identical shape ----

func (s *PostgresStore) createDimension(ctx context.Context, scope tenant.Scope, table string, id *uuid.UUID, tenantID *uuid.UUID, createdAt, updatedAt *time.Time, name string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if !scope.Bypass {
		*tenantID = scope.TenantID
	}
	if *tenantID == uuid.Nil {
		return ErrInvalidData
	}

	now := time.Now().UTC()
	*createdAt = now
	*updatedAt = now

	query := `INSERT INTO ` + table + ` (id, created_at, updated_at, tenant_id, name)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := s.getDB().ExecContext(ctx, query, *id, now, now, *tenantID, name)
	return mapError(err)
}

func (s *PostgresStore) getDimension(ctx context.Context, scope tenant.Scope, table, byColumn string, byValue interface{}, dest ...interface{}) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `SELECT id, created_at, updated_at, tenant_id, name FROM ` + table +
		` WHERE ` + byColumn + ` = $1`
	args := []interface{}{byValue}
	if !scope.Bypass {
		query += ` AND tenant_id = $2`
		args = append(args, scope.TenantID)
	}

	return mapError(s.getDB().QueryRowContext(ctx, query, args...).Scan(dest...))
}

func (s *PostgresStore) updateDimension(ctx context.Context, scope tenant.Scope, table string, id uuid.UUID, name string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `UPDATE ` + table + ` SET updated_at = $2, name = $3 WHERE id = $1`
	args := []interface{}{id, time.Now().UTC(), name}
	if !scope.Bypass {
		query += ` AND tenant_id = $4`
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

func (s *PostgresStore) deleteDimension(ctx context.Context, scope tenant.Scope, table string, id uuid.UUID) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	query := `DELETE FROM ` + table + ` WHERE id = $1`
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

func (s *PostgresStore) listDimension(ctx context.Context, scope tenant.Scope, table string) (*sql.Rows, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	query := `SELECT id, created_at, updated_at, tenant_id, name FROM ` + table
	var args []interface{}
	if !scope.Bypass {
		query += ` WHERE tenant_id = $1`
		args = append(args, scope.TenantID)
	}
	query += ` ORDER BY name`

	return s.getDB().QueryContext(ctx, query, args...)
}
