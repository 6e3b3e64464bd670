package controller

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gartstein/toolspend/internal/spend/models"
	"go.uber.org/zap"
)

// AnalyticsRepository is the read-only aggregation surface of the store.
type AnalyticsRepository interface {
	TotalActiveCost(ctx context.Context) (models.Money, error)
	DepartmentAggregates(ctx context.Context, sortBy, order string) ([]models.DepartmentAggregate, error)
	CategoryAggregates(ctx context.Context) ([]models.CategoryAggregate, error)
}

// AnalyticsService derives spend reports from grouped active-tool rows.
type AnalyticsService struct {
	repo   AnalyticsRepository
	logger *zap.Logger
}

func NewAnalyticsService(repo AnalyticsRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:   repo,
		logger: logger.Named("analytics_service"),
	}
}

// DepartmentCosts groups active tools by owner department. Rows keep the
// requested ordering; the most expensive department is chosen by cost and
// then by name.
func (s *AnalyticsService) DepartmentCosts(ctx context.Context, sortBy, order string) (*models.DepartmentCostReport, error) {
	total, err := s.repo.TotalActiveCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total active cost: %w", err)
	}
	rows, err := s.repo.DepartmentAggregates(ctx, sortBy, order)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate departments: %w", err)
	}

	if total == 0 && len(rows) == 0 {
		return &models.DepartmentCostReport{
			Data:    []models.DepartmentCost{},
			Message: models.NoAnalyticsDataMessage,
		}, nil
	}

	data := make([]models.DepartmentCost, 0, len(rows))
	for _, row := range rows {
		data = append(data, models.DepartmentCost{
			Department:         row.Department,
			TotalCost:          row.TotalCost.Float64(),
			ToolsCount:         row.ToolsCount,
			TotalUsers:         row.TotalUsers,
			AverageCostPerTool: averageOf(row.TotalCost, row.ToolsCount),
			CostPercentage:     percentOf(row.TotalCost, total),
		})
	}

	return &models.DepartmentCostReport{
		Data: data,
		Summary: models.DepartmentSummary{
			TotalCompanyCost:        total.Float64(),
			DepartmentsCount:        len(rows),
			MostExpensiveDepartment: mostExpensiveDepartment(rows),
		},
	}, nil
}

// ToolsByCategory groups active tools by category and names the most
// expensive and the cheapest-per-user categories.
func (s *AnalyticsService) ToolsByCategory(ctx context.Context) (*models.CategoryCostReport, error) {
	total, err := s.repo.TotalActiveCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total active cost: %w", err)
	}
	rows, err := s.repo.CategoryAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	if total == 0 && len(rows) == 0 {
		return &models.CategoryCostReport{
			Data:    []models.CategoryCost{},
			Message: models.NoAnalyticsDataMessage,
		}, nil
	}

	// Store ordering is advisory; the report is ordered here.
	sorted := make([]models.CategoryAggregate, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalCost != sorted[j].TotalCost {
			return sorted[i].TotalCost > sorted[j].TotalCost
		}
		return sorted[i].CategoryName < sorted[j].CategoryName
	})

	data := make([]models.CategoryCost, 0, len(sorted))
	for _, row := range sorted {
		item := models.CategoryCost{
			CategoryName:       row.CategoryName,
			ToolsCount:         row.ToolsCount,
			TotalCost:          row.TotalCost.Float64(),
			TotalUsers:         row.TotalUsers,
			PercentageOfBudget: percentOf(row.TotalCost, total),
		}
		if row.TotalUsers > 0 {
			perUser := averageOf(row.TotalCost, row.TotalUsers)
			item.AverageCostPerUser = &perUser
		}
		data = append(data, item)
	}

	var insights models.CategoryInsights
	if len(data) > 0 {
		name := data[0].CategoryName
		insights.MostExpensiveCategory = &name
	}
	insights.MostEfficientCategory = mostEfficientCategory(data)

	return &models.CategoryCostReport{
		Data:     data,
		Insights: insights,
	}, nil
}

func mostExpensiveDepartment(rows []models.DepartmentAggregate) *models.Department {
	if len(rows) == 0 {
		return nil
	}
	best := rows[0]
	for _, row := range rows[1:] {
		if row.TotalCost > best.TotalCost ||
			(row.TotalCost == best.TotalCost && row.Department < best.Department) {
			best = row
		}
	}
	department := best.Department
	return &department
}

func mostEfficientCategory(data []models.CategoryCost) *string {
	var best *models.CategoryCost
	for i := range data {
		item := &data[i]
		if item.AverageCostPerUser == nil {
			continue
		}
		if best == nil ||
			*item.AverageCostPerUser < *best.AverageCostPerUser ||
			(*item.AverageCostPerUser == *best.AverageCostPerUser && item.CategoryName < best.CategoryName) {
			best = item
		}
	}
	if best == nil {
		return nil
	}
	name := best.CategoryName
	return &name
}

// averageOf divides an amount by a count, rounded to cents. Zero counts
// yield 0.
func averageOf(amount models.Money, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return roundTo(float64(amount.Cents())/float64(count)/100, 2)
}

// percentOf returns part as a share of whole, in percent with one decimal.
func percentOf(part, whole models.Money) float64 {
	if whole <= 0 {
		return 0
	}
	return roundTo(float64(part.Cents())/float64(whole.Cents())*100, 1)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
