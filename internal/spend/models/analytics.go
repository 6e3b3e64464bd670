package models

// NoAnalyticsDataMessage explains an empty analytics report.
const NoAnalyticsDataMessage = "No analytics data available - ensure tools data exists"

// DepartmentAggregate is one grouped row of active tools per department.
type DepartmentAggregate struct {
	Department Department
	TotalCost  Money
	ToolsCount int64
	TotalUsers int64
}

// CategoryAggregate is one grouped row of active tools per category.
type CategoryAggregate struct {
	CategoryName string
	ToolsCount   int64
	TotalCost    Money
	TotalUsers   int64
}

// DepartmentCost is a department row enriched with derived ratios.
type DepartmentCost struct {
	Department         Department `json:"department"`
	TotalCost          float64    `json:"total_cost"`
	ToolsCount         int64      `json:"tools_count"`
	TotalUsers         int64      `json:"total_users"`
	AverageCostPerTool float64    `json:"average_cost_per_tool"`
	CostPercentage     float64    `json:"cost_percentage"`
}

// DepartmentSummary totals the department report.
type DepartmentSummary struct {
	TotalCompanyCost        float64     `json:"total_company_cost"`
	DepartmentsCount        int         `json:"departments_count"`
	MostExpensiveDepartment *Department `json:"most_expensive_department"`
}

// DepartmentCostReport is the department-costs analytics result.
type DepartmentCostReport struct {
	Data    []DepartmentCost  `json:"data"`
	Message string            `json:"message,omitempty"`
	Summary DepartmentSummary `json:"summary"`
}

// CategoryCost is a category row enriched with derived ratios.
type CategoryCost struct {
	CategoryName       string  `json:"category_name"`
	ToolsCount         int64   `json:"tools_count"`
	TotalCost          float64 `json:"total_cost"`
	TotalUsers         int64   `json:"total_users"`
	PercentageOfBudget float64 `json:"percentage_of_budget"`
	// AverageCostPerUser is nil when the category has no users.
	AverageCostPerUser *float64 `json:"average_cost_per_user"`
}

// CategoryInsights names the notable categories of a report.
type CategoryInsights struct {
	MostExpensiveCategory *string `json:"most_expensive_category"`
	MostEfficientCategory *string `json:"most_efficient_category"`
}

// CategoryCostReport is the tools-by-category analytics result.
type CategoryCostReport struct {
	Data     []CategoryCost   `json:"data"`
	Message  string           `json:"message,omitempty"`
	Insights CategoryInsights `json:"insights"`
}
