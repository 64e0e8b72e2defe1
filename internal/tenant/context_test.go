package tenant

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

func activePair() (*models.Employee, *models.Tenant) {
	t := &models.Tenant{ID: uuid.New(), Plan: models.PlanPro, IsActive: true}
	e := &models.Employee{ID: uuid.New(), TenantID: t.ID, IsActive: true}
	return e, t
}

func TestNewRejectsInactive(t *testing.T) {
	emp, tn := activePair()
	tn.IsActive = false
	if _, err := New(emp, tn); !errors.Is(err, ErrTenantInactive) {
		t.Fatalf("inactive tenant err = %v, want ErrTenantInactive", err)
	}

	emp, tn = activePair()
	emp.IsActive = false
	if _, err := New(emp, tn); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("inactive employee err = %v, want ErrUnauthenticated", err)
	}
}

func TestScopeValidity(t *testing.T) {
	if (Scope{}).Valid() {
		t.Fatal("zero scope must be invalid")
	}
	if !(Scope{TenantID: uuid.New()}).Valid() {
		t.Fatal("tenant scope must be valid")
	}
	if !(Scope{Bypass: true}).Valid() {
		t.Fatal("bypass scope must be valid")
	}
	if !Bypass().Scope().Bypass {
		t.Fatal("Bypass context must produce a bypass scope")
	}
}

func TestRoleChecks(t *testing.T) {
	emp, tn := activePair()
	tc, err := New(emp, tn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tc.IsAdmin() || tc.IsSuperAdmin() {
		t.Fatal("plain employee must not be admin")
	}

	admin := models.RoleAdmin
	emp.Role = &admin
	tc, _ = New(emp, tn)
	if !tc.IsAdmin() || tc.IsSuperAdmin() {
		t.Fatal("admin role checks wrong")
	}

	super := models.RoleSuperAdmin
	emp.Role = &super
	tc, _ = New(emp, tn)
	if !tc.IsAdmin() || !tc.IsSuperAdmin() {
		t.Fatal("super admin role checks wrong")
	}
}

func TestManagesEmployeeCenterScope(t *testing.T) {
	center := uuid.New()
	other := uuid.New()
	role := models.RoleAdmin

	unscoped := &Context{Role: &role}
	scoped := &Context{Role: &role, CenterID: &center}
	plain := &Context{}

	inCenter := &models.Employee{CenterID: &center}
	elsewhere := &models.Employee{CenterID: &other}
	unassigned := &models.Employee{}

	if !unscoped.ManagesEmployee(elsewhere) {
		t.Fatal("unscoped admin manages everyone")
	}
	if !scoped.ManagesEmployee(inCenter) {
		t.Fatal("scoped admin manages own center")
	}
	if scoped.ManagesEmployee(elsewhere) {
		t.Fatal("scoped admin must not manage other centers")
	}
	if scoped.ManagesEmployee(unassigned) {
		t.Fatal("scoped admin must not manage unassigned employees")
	}
	if plain.ManagesEmployee(inCenter) {
		t.Fatal("non-admin manages nobody")
	}
}
