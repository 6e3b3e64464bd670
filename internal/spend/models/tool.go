// Package models defines the core domain models of the spend tracker:
// tools, their categories, the closed department/status enumerations and
// the input types used to create and partially update a tool.
package models

import (
	"strings"
	"time"
)

// Department is the business unit that owns and pays for a tool.
type Department string

const (
	Engineering Department = "Engineering"
	Sales       Department = "Sales"
	Marketing   Department = "Marketing"
	HR          Department = "HR"
	Finance     Department = "Finance"
	Operations  Department = "Operations"
	Design      Department = "Design"
)

// Departments lists every valid Department in display order.
var Departments = []Department{Engineering, Sales, Marketing, HR, Finance, Operations, Design}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a tool.
type Status string

const (
	// StatusActive is the default for new tools and the only status counted in analytics.
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusTrial      Status = "trial"
)

// Statuses lists every valid Status.
var Statuses = []Status{StatusActive, StatusDeprecated, StatusTrial}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Category groups tools, e.g. "Communication" or "Development".
type Category struct {
	ID   uint
	Name string
}

// Tool is a purchased piece of software tracked for spend.
type Tool struct {
	// ID is the surrogate key assigned by the store.
	ID uint
	// Name is globally unique across tools.
	Name string
	// Description is optional free text.
	Description *string
	// Vendor is the company selling the tool.
	Vendor string
	// WebsiteURL is optional.
	WebsiteURL *string
	// MonthlyCost is the per-user monthly price.
	MonthlyCost Money
	// OwnerDepartment pays for the tool.
	OwnerDepartment Department
	Status          Status
	// ActiveUsersCount is the number of seats in use.
	ActiveUsersCount int64
	CategoryID       uint
	// Category is populated on reads.
	Category  Category
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalMonthlyCost is MonthlyCost multiplied by ActiveUsersCount.
func (t *Tool) TotalMonthlyCost() Money {
	return t.MonthlyCost.Mul(t.ActiveUsersCount)
}

// ToolCreate carries the raw fields of a create request. Pointers mark
// presence so that missing required fields can be reported by name.
type ToolCreate struct {
	Name            *string       `json:"name" validate:"required,min=2,max=100"`
	Description     *string       `json:"description" validate:"omitempty,max=255"`
	Vendor          *string       `json:"vendor" validate:"required,min=1,max=100"`
	WebsiteURL      *string       `json:"website_url" validate:"omitempty,max=255,url"`
	MonthlyCost     *DecimalInput `json:"monthly_cost" validate:"required,nonneg,money,maxcost"`
	OwnerDepartment *string       `json:"owner_department" validate:"required,department"`
	CategoryID      *int64        `json:"category_id" validate:"required"`
}

// Trimmed returns a copy with surrounding spaces removed from name and
// vendor, so uniqueness and length checks see the stored value.
func (c ToolCreate) Trimmed() *ToolCreate {
	c.Name = TrimmedText(c.Name)
	c.Vendor = TrimmedText(c.Vendor)
	return &c
}

// ToolUpdate represents the fields that can be changed on an existing tool.
// A nil field is left untouched; it is never a request to clear the value.
type ToolUpdate struct {
	Name             *string       `json:"name" validate:"omitnil,min=2,max=100"`
	Description      *string       `json:"description" validate:"omitempty,max=255"`
	Vendor           *string       `json:"vendor" validate:"omitnil,min=1,max=100"`
	WebsiteURL       *string       `json:"website_url" validate:"omitempty,max=255,url"`
	MonthlyCost      *DecimalInput `json:"monthly_cost" validate:"omitnil,nonneg,money,maxcost"`
	OwnerDepartment  *string       `json:"owner_department" validate:"omitnil,department"`
	Status           *string       `json:"status" validate:"omitnil,status"`
	ActiveUsersCount *int64        `json:"active_users_count" validate:"omitnil,gte=0"`
	CategoryID       *int64        `json:"category_id"`
}

// Trimmed returns a copy with surrounding spaces removed from name and
// vendor.
func (u ToolUpdate) Trimmed() *ToolUpdate {
	u.Name = TrimmedText(u.Name)
	u.Vendor = TrimmedText(u.Vendor)
	return &u
}

// Empty reports whether no field was supplied.
func (u *ToolUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Vendor == nil &&
		u.WebsiteURL == nil && u.MonthlyCost == nil && u.OwnerDepartment == nil &&
		u.Status == nil && u.ActiveUsersCount == nil && u.CategoryID == nil
}

// ToolChanges is a validated ToolUpdate, ready to be persisted. An empty
// Description or WebsiteURL clears the column.
type ToolChanges struct {
	Name             *string
	Description      *string
	Vendor           *string
	WebsiteURL       *string
	MonthlyCost      *Money
	OwnerDepartment  *Department
	Status           *Status
	ActiveUsersCount *int64
	CategoryID       *uint
}

// TrimmedText trims s, keeping nil as nil.
func TrimmedText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

// OptionalText trims s and returns nil for an empty result.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
