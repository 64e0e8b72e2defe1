// Package tenant carries the per-request tenant identity used to scope
// every data access. Handlers never filter by tenant themselves; the
// storage gateway derives the predicate from the Scope it is handed.
package tenant

import (
	"errors"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

var (
	// ErrUnauthenticated is returned when no valid session reached the handler
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTenantInactive is returned when the session's tenant is disabled
	ErrTenantInactive = errors.New("tenant inactive")
	// ErrNoScope is returned by the gateway when a query arrives without
	// a tenant and without bypass
	ErrNoScope = errors.New("query without tenant scope")
)

// Scope is what the storage gateway needs to build the tenant predicate.
// The zero Scope is invalid: queries carry either a tenant or an explicit
// bypass, never neither.
type Scope struct {
	TenantID uuid.UUID
	Bypass   bool
}

// Valid reports whether the scope can be used for a query
func (s Scope) Valid() bool {
	return s.Bypass || s.TenantID != uuid.Nil
}

// Context is the resolved identity of one request
type Context struct {
	TenantID   uuid.UUID
	EmployeeID uuid.UUID
	Role       *models.Role
	Plan       models.Plan

	// CenterID restricts an admin's scope to one center when set
	CenterID *uuid.UUID

	bypass bool
}

// New builds a request context from a resolved employee and tenant.
// Returns ErrTenantInactive when the tenant is disabled.
func New(emp *models.Employee, t *models.Tenant) (*Context, error) {
	if t == nil || emp == nil {
		return nil, ErrUnauthenticated
	}
	if !t.IsActive {
		return nil, ErrTenantInactive
	}
	if !emp.IsActive {
		return nil, ErrUnauthenticated
	}
	return &Context{
		TenantID:   t.ID,
		EmployeeID: emp.ID,
		Role:       emp.Role,
		Plan:       t.Plan,
		CenterID:   emp.CenterID,
	}, nil
}

// Bypass returns a context that disables predicate injection. Only the
// background scheduler and the admin CLI construct one; it is never
// derived from request state.
func Bypass() *Context {
	return &Context{bypass: true}
}

// Scope returns the storage scope for this context
func (c *Context) Scope() Scope {
	return Scope{TenantID: c.TenantID, Bypass: c.bypass}
}

// IsBypass reports whether this is a background-job context
func (c *Context) IsBypass() bool {
	return c.bypass
}

// IsAdmin reports whether the context holds an administrative role
func (c *Context) IsAdmin() bool {
	return c.Role != nil && (*c.Role == models.RoleAdmin || *c.Role == models.RoleSuperAdmin)
}

// IsSuperAdmin reports whether the context is a super admin
func (c *Context) IsSuperAdmin() bool {
	return c.Role != nil && *c.Role == models.RoleSuperAdmin
}

// ManagesEmployee reports whether an admin context may act on the given
// employee. Scope is the admin's center, orthogonal to role: an admin
// with a center only manages employees assigned to that center.
func (c *Context) ManagesEmployee(emp *models.Employee) bool {
	if !c.IsAdmin() {
		return false
	}
	if c.CenterID == nil {
		return true
	}
	return emp.CenterID != nil && *emp.CenterID == *c.CenterID
}
