package validation

import (
	"strings"
	"testing"
)

func TestValidateRequired(t *testing.T) {
	v := NewValidator()

	type req struct {
		Name  string `validate:"required"`
		Count int    `validate:"required"`
	}

	if err := v.Validate(&req{Name: "x", Count: 1}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}
	if err := v.Validate(&req{Count: 1}); err == nil || !strings.Contains(err.Error(), "Name") {
		t.Fatalf("missing Name not reported: %v", err)
	}
	if err := v.Validate(&req{Name: "x"}); err == nil || !strings.Contains(err.Error(), "Count") {
		t.Fatalf("zero Count not reported: %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	v := NewValidator()

	type req struct {
		Email string `validate:"email"`
	}

	// empty email passes, the field is optional unless also required
	if err := v.Validate(&req{}); err != nil {
		t.Fatalf("empty email rejected: %v", err)
	}
	if err := v.Validate(&req{Email: "ana@example.com"}); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"plainaddress", "@example.com", "ana@"} {
		if err := v.Validate(&req{Email: bad}); err == nil {
			t.Errorf("email %q accepted", bad)
		}
	}
}

func TestValidateLengths(t *testing.T) {
	v := NewValidator()

	type req struct {
		Password string `validate:"min=8,max=72"`
		PIN      string `validate:"len=4"`
	}

	if err := v.Validate(&req{Password: "longenough", PIN: "1234"}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}
	if err := v.Validate(&req{Password: "short", PIN: "1234"}); err == nil {
		t.Fatal("short password accepted")
	}
	if err := v.Validate(&req{Password: strings.Repeat("a", 73), PIN: "1234"}); err == nil {
		t.Fatal("oversize password accepted")
	}
	if err := v.Validate(&req{Password: "longenough", PIN: "123"}); err == nil {
		t.Fatal("wrong-length pin accepted")
	}
	// len only applies to non-empty values
	if err := v.Validate(&req{Password: "longenough"}); err != nil {
		t.Fatalf("empty pin rejected: %v", err)
	}
}

func TestValidateNonStruct(t *testing.T) {
	v := NewValidator()
	if err := v.Validate("not a struct"); err == nil {
		t.Fatal("non-struct accepted")
	}
}
