package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/pkg/crypto"
)

func newManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(&config.JWTConfig{Secret: "test-secret", TokenTTL: ttl})
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager(time.Hour)
	role := models.RoleAdmin
	emp := &models.Employee{ID: uuid.New(), TenantID: uuid.New(), Role: &role}

	token, err := m.GenerateToken(emp)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.EmployeeID != emp.ID {
		t.Fatalf("employee id = %v, want %v", claims.EmployeeID, emp.ID)
	}
	if claims.TenantID != emp.TenantID {
		t.Fatalf("tenant id = %v, want %v", claims.TenantID, emp.TenantID)
	}
	if claims.Role == nil || *claims.Role != models.RoleAdmin {
		t.Fatalf("role = %v", claims.Role)
	}
	if claims.Issuer != "timeclock-server" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newManager(-time.Minute)
	emp := &models.Employee{ID: uuid.New(), TenantID: uuid.New()}

	token, err := m.GenerateToken(emp)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := newManager(time.Hour)
	emp := &models.Employee{ID: uuid.New(), TenantID: uuid.New()}

	token, err := m.GenerateToken(emp)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewJWTManager(&config.JWTConfig{Secret: "different", TokenTTL: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m := newManager(time.Hour)
	if _, err := m.ValidateToken("not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestVerifyPassword(t *testing.T) {
	m := newManager(time.Hour)
	hash, err := crypto.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !m.VerifyPassword("hunter2", hash) {
		t.Fatal("correct password rejected")
	}
	if m.VerifyPassword("hunter3", hash) {
		t.Fatal("wrong password accepted")
	}
}
