package handlers

import (
	"context"
	"errors"
	"net/http"

	e "github.com/gartstein/toolspend/internal/spend/errors"
	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ToolController defines the tool operations the HTTP handlers invoke.
type ToolController interface {
	SearchTools(ctx context.Context, q models.ToolQuery) (*models.ToolPage, error)
	CountTools(ctx context.Context) (int64, error)
	GetTool(ctx context.Context, id uint) (*models.Tool, error)
	CreateTool(ctx context.Context, in *models.ToolCreate) (*models.Tool, error)
	UpdateTool(ctx context.Context, id uint, in *models.ToolUpdate) (*models.Tool, error)
}

// AnalyticsController defines the spend reports the HTTP handlers invoke.
type AnalyticsController interface {
	DepartmentCosts(ctx context.Context, sortBy, order string) (*models.DepartmentCostReport, error)
	ToolsByCategory(ctx context.Context) (*models.CategoryCostReport, error)
}

// ToolHandler serves the /api routes, mapping requests to the controllers.
type ToolHandler struct {
	tools     ToolController
	analytics AnalyticsController
	logger    *zap.Logger
}

// NewToolHandler constructs a new ToolHandler with the given services and logger.
func NewToolHandler(tools ToolController, analytics AnalyticsController, logger *zap.Logger) *ToolHandler {
	return &ToolHandler{
		tools:     tools,
		analytics: analytics,
		logger:    logger.Named("http_handler"),
	}
}

// Register mounts the API routes on r.
func (h *ToolHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/tools", h.ListTools)
	api.POST("/tools", h.CreateTool)
	api.GET("/tools/:id", h.GetTool)
	api.PUT("/tools/:id", h.UpdateTool)
	api.GET("/analytics/department-costs", h.DepartmentCosts)
	api.GET("/analytics/tools-by-category", h.ToolsByCategory)
}

func (h *ToolHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListTools returns one page of tools with the filtered and platform totals.
func (h *ToolHandler) ListTools(c *gin.Context) {
	params := parseListParams(c)
	ctx := c.Request.Context()

	page, err := h.tools.SearchTools(ctx, params.query)
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	total, err := h.tools.CountTools(ctx)
	if err != nil {
		h.writeError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, toolListResponse{
		Data:           listItems(page.Tools),
		Total:          total,
		Filtered:       page.Filtered,
		FiltersApplied: params.applied,
		Page:           params.page,
		Limit:          params.query.Limit,
	})
}

// GetTool returns the detail view of one tool.
func (h *ToolHandler) GetTool(c *gin.Context) {
	id, ok := toolID(c)
	if !ok {
		h.writeError(c, e.ErrNotFound, c.Param("id"))
		return
	}

	tool, err := h.tools.GetTool(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, detailItem(tool))
}

// CreateTool validates the body and creates an active tool.
func (h *ToolHandler) CreateTool(c *gin.Context) {
	var in models.ToolCreate
	if err := decodeBody(c, &in); err != nil {
		h.writeError(c, err, "")
		return
	}

	tool, err := h.tools.CreateTool(c.Request.Context(), &in)
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, writeItem(tool))
}

// UpdateTool applies a partial update. An unknown id answers 404 before the
// body is looked at.
func (h *ToolHandler) UpdateTool(c *gin.Context) {
	id, ok := toolID(c)
	if !ok {
		h.writeError(c, e.ErrNotFound, c.Param("id"))
		return
	}
	ctx := c.Request.Context()

	var in models.ToolUpdate
	if err := decodeBody(c, &in); err != nil {
		if _, getErr := h.tools.GetTool(ctx, id); getErr != nil {
			err = getErr
		}
		h.writeError(c, err, c.Param("id"))
		return
	}

	tool, err := h.tools.UpdateTool(ctx, id, &in)
	if err != nil {
		h.writeError(c, err, c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, writeItem(tool))
}

// DepartmentCosts reports active spend per owner department.
func (h *ToolHandler) DepartmentCosts(c *gin.Context) {
	report, err := h.analytics.DepartmentCosts(c.Request.Context(), c.Query("sort_by"), c.Query("order"))
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, report)
}

// ToolsByCategory reports active spend per category.
func (h *ToolHandler) ToolsByCategory(c *gin.Context) {
	report, err := h.analytics.ToolsByCategory(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, report)
}

// writeError maps service errors to status codes and bodies. rawID names the
// tool in 404 messages.
func (h *ToolHandler) writeError(c *gin.Context, err error, rawID string) {
	var verr *e.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, validationFailed(verr.Details))
	case errors.Is(err, e.ErrMalformedRequest):
		c.JSON(http.StatusBadRequest, validationFailed(map[string]string{"body": msgInvalidBody}))
	case errors.Is(err, e.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, validationFailed(map[string]string{}))
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, toolNotFound(rawID))
	default:
		h.logger.Error("Internal server error",
			zap.Error(err),
			zap.String("path", c.FullPath()),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}
