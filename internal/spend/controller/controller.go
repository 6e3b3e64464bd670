// Package controller implements the core business logic (service layer) of
// the spend tracker: searching and mutating tools, and deriving spend
// analytics from the store's aggregates.
package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/toolspend/internal/spend/errors"
	"github.com/gartstein/toolspend/internal/spend/events"
	"github.com/gartstein/toolspend/internal/spend/models"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, tool *models.Tool)
}

// Repository defines the storage interface for tools and categories.
type Repository interface {
	CreateTool(ctx context.Context, tool *models.Tool) error
	GetTool(ctx context.Context, id uint) (*models.Tool, error)
	UpdateTool(ctx context.Context, id uint, changes *models.ToolChanges) error
	SearchTools(ctx context.Context, q models.ToolQuery) ([]*models.Tool, int64, error)
	CountTools(ctx context.Context) (int64, error)
	ToolNameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
}

// ToolService searches, creates and updates tools.
type ToolService struct {
	repo      Repository
	producer  EventProducer
	validator *inputValidator
	logger    *zap.Logger
}

// NewToolService constructs a ToolService with a repository, an event
// producer and a logger.
func NewToolService(repo Repository, producer EventProducer, logger *zap.Logger) *ToolService {
	return &ToolService{
		repo:      repo,
		producer:  producer,
		validator: newInputValidator(),
		logger:    logger.Named("tool_service"),
	}
}

// SearchTools returns one page of tools matching q and the number of tools
// matching q's filter across all pages.
func (s *ToolService) SearchTools(ctx context.Context, q models.ToolQuery) (*models.ToolPage, error) {
	tools, filtered, err := s.repo.SearchTools(ctx, q.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to search tools: %w", err)
	}
	return &models.ToolPage{Tools: tools, Filtered: filtered}, nil
}

// CountTools returns the number of tools in the platform, ignoring filters.
func (s *ToolService) CountTools(ctx context.Context) (int64, error) {
	total, err := s.repo.CountTools(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tools: %w", err)
	}
	return total, nil
}

// GetTool retrieves a tool by ID, returning ErrNotFound if it does not exist.
func (s *ToolService) GetTool(ctx context.Context, id uint) (*models.Tool, error) {
	tool, err := s.repo.GetTool(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	return tool, nil
}

// CreateTool validates in and persists a new active tool with no users.
// Every rejected field is reported at once in a *errors.ValidationError.
func (s *ToolService) CreateTool(ctx context.Context, in *models.ToolCreate) (*models.Tool, error) {
	in = in.Trimmed()
	verr := s.validator.check(in)

	if in.Name != nil && !verr.Has("name") {
		if err := s.checkNameFree(ctx, *in.Name, 0, verr); err != nil {
			return nil, err
		}
	}

	var category *models.Category
	if in.CategoryID != nil {
		found, err := s.lookupCategory(ctx, *in.CategoryID, verr)
		if err != nil {
			return nil, err
		}
		category = found
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	cost, err := models.ParseMoney(in.MonthlyCost.String())
	if err != nil {
		return nil, fmt.Errorf("%w: monthly_cost", e.ErrInvalidInput)
	}

	tool := &models.Tool{
		Name:             *in.Name,
		Description:      models.OptionalText(in.Description),
		Vendor:           *in.Vendor,
		WebsiteURL:       models.OptionalText(in.WebsiteURL),
		MonthlyCost:      cost,
		OwnerDepartment:  models.Department(*in.OwnerDepartment),
		Status:           models.StatusActive,
		ActiveUsersCount: 0,
		CategoryID:       category.ID,
		Category:         *category,
	}
	if err := s.repo.CreateTool(ctx, tool); err != nil {
		if verr := constraintViolation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	s.producer.Produce(events.ToolCreated, tool)
	return tool, nil
}

// UpdateTool applies the supplied fields of in to the tool with the given
// ID. The tool must exist before the payload is validated.
func (s *ToolService) UpdateTool(ctx context.Context, id uint, in *models.ToolUpdate) (*models.Tool, error) {
	if _, err := s.GetTool(ctx, id); err != nil {
		return nil, err
	}

	in = in.Trimmed()
	verr := s.validator.check(in)

	if in.Name != nil && !verr.Has("name") {
		if err := s.checkNameFree(ctx, *in.Name, id, verr); err != nil {
			return nil, err
		}
	}

	changes := &models.ToolChanges{
		Name:             in.Name,
		Description:      models.TrimmedText(in.Description),
		Vendor:           in.Vendor,
		WebsiteURL:       models.TrimmedText(in.WebsiteURL),
		ActiveUsersCount: in.ActiveUsersCount,
	}
	if in.CategoryID != nil {
		category, err := s.lookupCategory(ctx, *in.CategoryID, verr)
		if err != nil {
			return nil, err
		}
		if category != nil {
			changes.CategoryID = &category.ID
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.MonthlyCost != nil {
		cost, err := models.ParseMoney(in.MonthlyCost.String())
		if err != nil {
			return nil, fmt.Errorf("%w: monthly_cost", e.ErrInvalidInput)
		}
		changes.MonthlyCost = &cost
	}
	if in.OwnerDepartment != nil {
		department := models.Department(*in.OwnerDepartment)
		changes.OwnerDepartment = &department
	}
	if in.Status != nil {
		status := models.Status(*in.Status)
		changes.Status = &status
	}

	if err := s.repo.UpdateTool(ctx, id, changes); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		if verr := constraintViolation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}

	updated, err := s.repo.GetTool(ctx, id)
	if err != nil {
		s.logger.Error("Failed to reload updated tool",
			zap.Error(err),
			zap.Uint("tool_id", id),
		)
		return nil, err
	}

	s.producer.Produce(events.ToolUpdated, updated)
	return updated, nil
}

// checkNameFree is a fast path for a readable error; the unique index on
// tool.name still decides when two writers race.
func (s *ToolService) checkNameFree(ctx context.Context, name string, excludeID uint, verr *e.ValidationError) error {
	taken, err := s.repo.ToolNameTaken(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check name existence: %w", err)
	}
	if taken {
		verr.Add("name", msgNameUnique)
	}
	return nil
}

// lookupCategory returns the category or records a validation failure and
// returns nil when it does not exist.
func (s *ToolService) lookupCategory(ctx context.Context, id int64, verr *e.ValidationError) (*models.Category, error) {
	if id <= 0 {
		verr.Add("category_id", msgCategoryMissing)
		return nil, nil
	}
	category, err := s.repo.GetCategory(ctx, uint(id))
	if err != nil {
		if errors.Is(err, e.ErrCategoryNotFound) {
			verr.Add("category_id", msgCategoryMissing)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// constraintViolation turns store constraint errors into the same
// validation shape as the pre-checks.
func constraintViolation(err error) *e.ValidationError {
	verr := e.NewValidationError()
	switch {
	case errors.Is(err, e.ErrDuplicateName):
		verr.Add("name", msgNameUnique)
	case errors.Is(err, e.ErrCategoryNotFound):
		verr.Add("category_id", msgCategoryMissing)
	default:
		return nil
	}
	return verr
}
