package db

import (
	"context"
	"fmt"
	"strings"

	dbmodels "github.com/gartstein/toolspend/internal/spend/db/models"
	"github.com/gartstein/toolspend/internal/spend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toolSortColumns whitelists the sortable listing keys.
var toolSortColumns = map[string]string{
	"name":         "name",
	"monthly_cost": "monthly_cost",
	"created_at":   "created_at",
}

// departmentSortColumns whitelists the department aggregate sort keys.
var departmentSortColumns = map[string]string{
	"department":  "department",
	"total_cost":  "total_cost",
	"tools_count": "tools_count",
	"total_users": "total_users",
}

const defaultDepartmentSort = "total_cost"

// SearchTools returns one page of tools matching q.Filter together with the
// number of tools matching the filter regardless of paging. The count runs
// the same predicate again without limit and offset.
func (r *Repository) SearchTools(ctx context.Context, q models.ToolQuery) ([]*models.Tool, int64, error) {
	q = q.Normalize()

	column, ok := toolSortColumns[q.SortKey]
	if !ok {
		column = "id"
	}
	desc := q.Order == models.Desc

	query := r.filteredTools(ctx, q.Filter).
		Select("tool.*").
		Preload("Category").
		Order(clause.OrderByColumn{Column: clause.Column{Table: "tool", Name: column}, Desc: desc})
	if column != "id" {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Table: "tool", Name: "id"}, Desc: desc})
	}

	var records []dbmodels.Tool
	if err := query.Limit(q.Limit).Offset(q.Offset).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search tools: %w", err)
	}

	var filtered int64
	if err := r.filteredTools(ctx, q.Filter).Count(&filtered).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count filtered tools: %w", err)
	}

	tools := make([]*models.Tool, 0, len(records))
	for i := range records {
		tools = append(tools, records[i].ToDomain())
	}
	return tools, filtered, nil
}

// CountTools counts every tool, ignoring any filter.
func (r *Repository) CountTools(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tools: %w", err)
	}
	return count, nil
}

func (r *Repository) filteredTools(ctx context.Context, f models.ToolFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&dbmodels.Tool{}).
		Joins("LEFT JOIN category ON category.id = tool.category_id")

	if f.Department != nil && *f.Department != "" {
		query = query.Where("tool.owner_department = ?", *f.Department)
	}
	if f.Status != nil && *f.Status != "" {
		query = query.Where("tool.status = ?", *f.Status)
	}
	if f.MinCost != nil {
		query = query.Where("tool.monthly_cost >= ?", *f.MinCost)
	}
	if f.MaxCost != nil {
		query = query.Where("tool.monthly_cost <= ?", *f.MaxCost)
	}
	if f.Category != nil && *f.Category != "" {
		query = query.Where("category.name = ?", *f.Category)
	}
	return query
}

// TotalActiveCost sums monthly_cost over active tools.
func (r *Repository) TotalActiveCost(ctx context.Context) (models.Money, error) {
	var total models.Money
	row := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).
		Select("COALESCE(SUM(monthly_cost), 0)").
		Where("status = ?", models.StatusActive).
		Row()
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum active cost: %w", err)
	}
	return total, nil
}

// DepartmentAggregates groups active tools per owner department. sortBy
// outside the whitelist falls back to total_cost; order is ascending only
// for a case-insensitive "asc".
func (r *Repository) DepartmentAggregates(ctx context.Context, sortBy, order string) ([]models.DepartmentAggregate, error) {
	column, ok := departmentSortColumns[sortBy]
	if !ok {
		column = defaultDepartmentSort
	}
	direction := strings.ToUpper(string(models.ParseSortOrder(order)))

	var rows []models.DepartmentAggregate
	err := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).
		Select("owner_department AS department, "+
			"COALESCE(SUM(monthly_cost), 0) AS total_cost, "+
			"COUNT(id) AS tools_count, "+
			"CAST(COALESCE(SUM(active_users_count), 0) AS BIGINT) AS total_users").
		Where("status = ?", models.StatusActive).
		Group("owner_department").
		Order(fmt.Sprintf("%s %s, department ASC", column, direction)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate departments: %w", err)
	}
	return rows, nil
}

// CategoryAggregates groups active tools per category name, most expensive
// first.
func (r *Repository) CategoryAggregates(ctx context.Context) ([]models.CategoryAggregate, error) {
	var rows []models.CategoryAggregate
	err := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).
		Joins("JOIN category ON category.id = tool.category_id").
		Select("category.name AS category_name, "+
			"COUNT(tool.id) AS tools_count, "+
			"COALESCE(SUM(tool.monthly_cost), 0) AS total_cost, "+
			"CAST(COALESCE(SUM(tool.active_users_count), 0) AS BIGINT) AS total_users").
		Where("tool.status = ?", models.StatusActive).
		Group("category.name").
		Order("total_cost DESC, category_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	return rows, nil
}
