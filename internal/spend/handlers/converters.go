package handlers

import (
	"fmt"
	"time"

	"github.com/gartstein/toolspend/internal/spend/models"
)

const msgInvalidBody = "Invalid JSON body"

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func validationFailed(details map[string]string) errorResponse {
	return errorResponse{Error: "Validation failed", Details: details}
}

func toolNotFound(rawID string) errorResponse {
	return errorResponse{
		Error:   "Tool not found",
		Message: fmt.Sprintf("Tool with ID %s does not exist", rawID),
	}
}

// toolItem is the list shape of a tool.
type toolItem struct {
	ID               uint              `json:"id"`
	Name             string            `json:"name"`
	Description      *string           `json:"description"`
	Vendor           string            `json:"vendor"`
	Category         string            `json:"category"`
	MonthlyCost      models.Money      `json:"monthly_cost"`
	OwnerDepartment  models.Department `json:"owner_department"`
	Status           models.Status     `json:"status"`
	WebsiteURL       *string           `json:"website_url"`
	ActiveUsersCount int64             `json:"active_users_count"`
	CreatedAt        string            `json:"created_at"`
}

// toolWriteItem is returned by create and update.
type toolWriteItem struct {
	toolItem
	UpdatedAt string `json:"updated_at"`
}

type usageWindow struct {
	TotalSessions     int `json:"total_sessions"`
	AvgSessionMinutes int `json:"avg_session_minutes"`
}

type usageMetrics struct {
	Last30Days usageWindow `json:"last_30_days"`
}

// placeholderUsage stands in until session tracking exists.
var placeholderUsage = usageMetrics{
	Last30Days: usageWindow{TotalSessions: 127, AvgSessionMinutes: 45},
}

// toolDetailItem is the full view of one tool.
type toolDetailItem struct {
	toolItem
	UpdatedAt        string       `json:"updated_at"`
	TotalMonthlyCost models.Money `json:"total_monthly_cost"`
	UsageMetrics     usageMetrics `json:"usage_metrics"`
}

type toolListResponse struct {
	Data           []toolItem             `json:"data"`
	Total          int64                  `json:"total"`
	Filtered       int64                  `json:"filtered"`
	FiltersApplied map[string]interface{} `json:"filters_applied"`
	Page           int                    `json:"page"`
	Limit          int                    `json:"limit"`
}

func listItem(t *models.Tool) toolItem {
	return toolItem{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Vendor:           t.Vendor,
		Category:         t.Category.Name,
		MonthlyCost:      t.MonthlyCost,
		OwnerDepartment:  t.OwnerDepartment,
		Status:           t.Status,
		WebsiteURL:       t.WebsiteURL,
		ActiveUsersCount: t.ActiveUsersCount,
		CreatedAt:        timestamp(t.CreatedAt),
	}
}

func listItems(tools []*models.Tool) []toolItem {
	items := make([]toolItem, 0, len(tools))
	for _, t := range tools {
		items = append(items, listItem(t))
	}
	return items
}

func writeItem(t *models.Tool) toolWriteItem {
	return toolWriteItem{
		toolItem:  listItem(t),
		UpdatedAt: timestamp(t.UpdatedAt),
	}
}

func detailItem(t *models.Tool) toolDetailItem {
	return toolDetailItem{
		toolItem:         listItem(t),
		UpdatedAt:        timestamp(t.UpdatedAt),
		TotalMonthlyCost: t.TotalMonthlyCost(),
		UsageMetrics:     placeholderUsage,
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
