package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan identifies the billing plan of a tenant
type Plan string

const (
	PlanLite Plan = "lite"
	PlanPro  Plan = "pro"
)

// Valid reports whether the plan is a known value
func (p Plan) Valid() bool {
	return p == PlanLite || p == PlanPro
}

// LiteMaxEmployees is the employee cap for lite tenants
const LiteMaxEmployees = 5

// Tenant represents a customer company
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
	Plan Plan   `json:"plan" db:"plan"`

	// Branding
	LogoURL        string `json:"logoUrl,omitempty" db:"logo_url"`
	PrimaryColor   string `json:"primaryColor" db:"primary_color"`
	SecondaryColor string `json:"secondaryColor" db:"secondary_color"`

	IsActive bool `json:"isActive" db:"is_active"`
}

// PlanFeatures describes what a plan unlocks
type PlanFeatures struct {
	MaxEmployees       int  `json:"maxEmployees"` // 0 = unlimited
	MultiCenter        bool `json:"multiCenter"`
	AdvancedReports    bool `json:"advancedReports"`
	EmailNotifications bool `json:"emailNotifications"`
}

// Features returns the feature set for the tenant's plan
func (t *Tenant) Features() PlanFeatures {
	return t.Plan.Features()
}

// Features returns the feature set a plan unlocks
func (p Plan) Features() PlanFeatures {
	if p == PlanLite {
		return PlanFeatures{
			MaxEmployees:       LiteMaxEmployees,
			MultiCenter:        false,
			AdvancedReports:    false,
			EmailNotifications: false,
		}
	}
	return PlanFeatures{
		MaxEmployees:       0,
		MultiCenter:        true,
		AdvancedReports:    true,
		EmailNotifications: true,
	}
}
