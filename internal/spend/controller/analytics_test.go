package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockAnalyticsRepository struct {
	totalActiveCost      func(context.Context) (models.Money, error)
	departmentAggregates func(context.Context, string, string) ([]models.DepartmentAggregate, error)
	categoryAggregates   func(context.Context) ([]models.CategoryAggregate, error)
}

func (m *MockAnalyticsRepository) TotalActiveCost(ctx context.Context) (models.Money, error) {
	return m.totalActiveCost(ctx)
}

func (m *MockAnalyticsRepository) DepartmentAggregates(ctx context.Context, sortBy, order string) ([]models.DepartmentAggregate, error) {
	return m.departmentAggregates(ctx, sortBy, order)
}

func (m *MockAnalyticsRepository) CategoryAggregates(ctx context.Context) ([]models.CategoryAggregate, error) {
	return m.categoryAggregates(ctx)
}

func departmentRepo(total models.Money, rows ...models.DepartmentAggregate) *MockAnalyticsRepository {
	return &MockAnalyticsRepository{
		totalActiveCost: func(context.Context) (models.Money, error) { return total, nil },
		departmentAggregates: func(context.Context, string, string) ([]models.DepartmentAggregate, error) {
			return rows, nil
		},
	}
}

func categoryRepo(total models.Money, rows ...models.CategoryAggregate) *MockAnalyticsRepository {
	return &MockAnalyticsRepository{
		totalActiveCost: func(context.Context) (models.Money, error) { return total, nil },
		categoryAggregates: func(context.Context) ([]models.CategoryAggregate, error) {
			return rows, nil
		},
	}
}

func TestAnalyticsService_DepartmentCosts(t *testing.T) {
	t.Run("derived metrics", func(t *testing.T) {
		repo := departmentRepo(35000,
			models.DepartmentAggregate{Department: models.HR, TotalCost: 20000, ToolsCount: 1, TotalUsers: 4},
			models.DepartmentAggregate{Department: models.Engineering, TotalCost: 15000, ToolsCount: 2, TotalUsers: 9},
		)
		var gotSort string
		var gotOrder string
		rows := repo.departmentAggregates
		repo.departmentAggregates = func(ctx context.Context, sortBy, order string) ([]models.DepartmentAggregate, error) {
			gotSort, gotOrder = sortBy, order
			return rows(ctx, sortBy, order)
		}
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.DepartmentCosts(context.Background(), "total_cost", "desc")
		require.NoError(t, err)

		assert.Equal(t, "total_cost", gotSort)
		assert.Equal(t, "desc", gotOrder)
		assert.Empty(t, report.Message)
		assert.Equal(t, []models.DepartmentCost{
			{Department: models.HR, TotalCost: 200, ToolsCount: 1, TotalUsers: 4, AverageCostPerTool: 200, CostPercentage: 57.1},
			{Department: models.Engineering, TotalCost: 150, ToolsCount: 2, TotalUsers: 9, AverageCostPerTool: 75, CostPercentage: 42.9},
		}, report.Data)
		assert.Equal(t, 350.0, report.Summary.TotalCompanyCost)
		assert.Equal(t, 2, report.Summary.DepartmentsCount)
		require.NotNil(t, report.Summary.MostExpensiveDepartment)
		assert.Equal(t, models.HR, *report.Summary.MostExpensiveDepartment)
	})

	t.Run("ties break alphabetically whatever the row order", func(t *testing.T) {
		repo := departmentRepo(20000,
			models.DepartmentAggregate{Department: models.Sales, TotalCost: 10000, ToolsCount: 1},
			models.DepartmentAggregate{Department: models.Engineering, TotalCost: 10000, ToolsCount: 3},
		)
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.DepartmentCosts(context.Background(), "tools_count", "asc")
		require.NoError(t, err)

		assert.Equal(t, models.Sales, report.Data[0].Department, "row order is kept")
		assert.Equal(t, models.Engineering, *report.Summary.MostExpensiveDepartment)
		assert.Equal(t, 33.33, report.Data[1].AverageCostPerTool)
		assert.Equal(t, 50.0, report.Data[1].CostPercentage)
	})

	t.Run("no data", func(t *testing.T) {
		service := NewAnalyticsService(departmentRepo(0), zaptest.NewLogger(t))

		report, err := service.DepartmentCosts(context.Background(), "", "")
		require.NoError(t, err)

		assert.Equal(t, models.NoAnalyticsDataMessage, report.Message)
		assert.NotNil(t, report.Data)
		assert.Empty(t, report.Data)
		assert.Zero(t, report.Summary.TotalCompanyCost)
		assert.Nil(t, report.Summary.MostExpensiveDepartment)
	})

	t.Run("free tools still reported", func(t *testing.T) {
		repo := departmentRepo(0,
			models.DepartmentAggregate{Department: models.Marketing, TotalCost: 0, ToolsCount: 2, TotalUsers: 5},
		)
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.DepartmentCosts(context.Background(), "", "")
		require.NoError(t, err)

		assert.Empty(t, report.Message)
		require.Len(t, report.Data, 1)
		assert.Zero(t, report.Data[0].CostPercentage)
	})

	t.Run("store error", func(t *testing.T) {
		repo := &MockAnalyticsRepository{
			totalActiveCost: func(context.Context) (models.Money, error) { return 0, errors.New("boom") },
		}
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		_, err := service.DepartmentCosts(context.Background(), "", "")
		assert.EqualError(t, err, "failed to compute total active cost: boom")
	})
}

func TestAnalyticsService_ToolsByCategory(t *testing.T) {
	t.Run("derived metrics and insights", func(t *testing.T) {
		repo := categoryRepo(60000,
			models.CategoryAggregate{CategoryName: "Development", ToolsCount: 2, TotalCost: 30000, TotalUsers: 10},
			models.CategoryAggregate{CategoryName: "Communication", ToolsCount: 3, TotalCost: 30000, TotalUsers: 60},
			models.CategoryAggregate{CategoryName: "Design", ToolsCount: 1, TotalCost: 0, TotalUsers: 0},
		)
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.ToolsByCategory(context.Background())
		require.NoError(t, err)

		require.Len(t, report.Data, 3)
		assert.Equal(t, "Communication", report.Data[0].CategoryName)
		assert.Equal(t, "Development", report.Data[1].CategoryName)
		assert.Equal(t, 50.0, report.Data[0].PercentageOfBudget)
		assert.Equal(t, 5.0, *report.Data[0].AverageCostPerUser)
		assert.Equal(t, 30.0, *report.Data[1].AverageCostPerUser)
		assert.Nil(t, report.Data[2].AverageCostPerUser, "zero users yields null, not 0")

		require.NotNil(t, report.Insights.MostExpensiveCategory)
		assert.Equal(t, "Communication", *report.Insights.MostExpensiveCategory)
		require.NotNil(t, report.Insights.MostEfficientCategory)
		assert.Equal(t, "Communication", *report.Insights.MostEfficientCategory)
	})

	t.Run("efficiency ties break alphabetically", func(t *testing.T) {
		repo := categoryRepo(4000,
			models.CategoryAggregate{CategoryName: "Security", ToolsCount: 1, TotalCost: 3000, TotalUsers: 3},
			models.CategoryAggregate{CategoryName: "Analytics", ToolsCount: 1, TotalCost: 1000, TotalUsers: 1},
		)
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.ToolsByCategory(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Security", *report.Insights.MostExpensiveCategory)
		assert.Equal(t, "Analytics", *report.Insights.MostEfficientCategory)
	})

	t.Run("only zero-user categories", func(t *testing.T) {
		repo := categoryRepo(500,
			models.CategoryAggregate{CategoryName: "Design", ToolsCount: 1, TotalCost: 500},
		)
		service := NewAnalyticsService(repo, zaptest.NewLogger(t))

		report, err := service.ToolsByCategory(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Design", *report.Insights.MostExpensiveCategory)
		assert.Nil(t, report.Insights.MostEfficientCategory)
	})

	t.Run("no data", func(t *testing.T) {
		service := NewAnalyticsService(categoryRepo(0), zaptest.NewLogger(t))

		report, err := service.ToolsByCategory(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.NoAnalyticsDataMessage, report.Message)
		assert.Empty(t, report.Data)
		assert.Nil(t, report.Insights.MostExpensiveCategory)
		assert.Nil(t, report.Insights.MostEfficientCategory)
	})
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 42.9, percentOf(15000, 35000))
	assert.Equal(t, 0.0, percentOf(100, 0))
	assert.Equal(t, 6.67, averageOf(2000, 3))
	assert.Equal(t, 0.0, averageOf(2000, 0))
}
