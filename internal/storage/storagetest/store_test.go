package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

func TestCreateEmployeeUniquePerTenant(t *testing.T) {
	store := New()
	ctx := context.Background()
	scope := tenant.Scope{TenantID: uuid.New()}

	first := &models.Employee{Username: "ana", Email: "ana@example.com", FullName: "Ana"}
	if err := store.CreateEmployee(ctx, scope, first); err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}

	dupUsername := &models.Employee{Username: "ana", Email: "other@example.com", FullName: "Ana B"}
	if err := store.CreateEmployee(ctx, scope, dupUsername); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("duplicate username err = %v, want ErrDuplicateKey", err)
	}

	dupEmail := &models.Employee{Username: "ana2", Email: "ana@example.com", FullName: "Ana C"}
	if err := store.CreateEmployee(ctx, scope, dupEmail); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("duplicate email err = %v, want ErrDuplicateKey", err)
	}

	// uniqueness is per tenant, never global
	other := tenant.Scope{TenantID: uuid.New()}
	same := &models.Employee{Username: "ana", Email: "ana@example.com", FullName: "Ana"}
	if err := store.CreateEmployee(ctx, other, same); err != nil {
		t.Fatalf("same identity in another tenant: %v", err)
	}
}
