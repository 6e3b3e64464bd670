// Package models contains the persistence records of the spend tracker,
// mapped to the category and tool tables with GORM.
package models

import (
	"time"

	domain "github.com/gartstein/toolspend/internal/spend/models"
)

// Category is a row of the category table.
type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

// TableName keeps the singular table name of the schema.
func (Category) TableName() string {
	return "category"
}

// Tool is a row of the tool table. The unique index on name is the final
// authority on name uniqueness.
type Tool struct {
	ID               uint              `gorm:"primaryKey"`
	Name             string            `gorm:"size:100;not null;uniqueIndex:uniq_tool_name"`
	Description      *string           `gorm:"type:text"`
	Vendor           string            `gorm:"size:100;not null"`
	WebsiteURL       *string           `gorm:"size:255"`
	MonthlyCost      domain.Money      `gorm:"type:numeric(10,2);not null;index:idx_tool_monthly_cost"`
	OwnerDepartment  domain.Department `gorm:"size:50;not null;index:idx_tool_department"`
	Status           domain.Status     `gorm:"size:20;not null;default:active;index:idx_tool_status"`
	ActiveUsersCount int64             `gorm:"not null;default:0;check:active_users_count >= 0"`
	CreatedAt        time.Time         `gorm:"not null"`
	UpdatedAt        time.Time         `gorm:"not null"`
	CategoryID       uint              `gorm:"not null;index:idx_tool_category"`
	Category         Category          `gorm:"constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName keeps the singular table name of the schema.
func (Tool) TableName() string {
	return "tool"
}

// ToDomain converts the record, including its loaded category.
func (t *Tool) ToDomain() *domain.Tool {
	return &domain.Tool{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Vendor:           t.Vendor,
		WebsiteURL:       t.WebsiteURL,
		MonthlyCost:      t.MonthlyCost,
		OwnerDepartment:  t.OwnerDepartment,
		Status:           t.Status,
		ActiveUsersCount: t.ActiveUsersCount,
		CategoryID:       t.CategoryID,
		Category:         domain.Category{ID: t.Category.ID, Name: t.Category.Name},
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// ToolFromDomain builds a record for insertion.
func ToolFromDomain(t *domain.Tool) *Tool {
	return &Tool{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Vendor:           t.Vendor,
		WebsiteURL:       t.WebsiteURL,
		MonthlyCost:      t.MonthlyCost,
		OwnerDepartment:  t.OwnerDepartment,
		Status:           t.Status,
		ActiveUsersCount: t.ActiveUsersCount,
		CategoryID:       t.CategoryID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// All lists the records in dependency order for AutoMigrate.
var All = []interface{}{&Category{}, &Tool{}}
