// Package seed loads YAML fixtures of categories and sample tools into the
// store. Applying the same fixture twice creates nothing new.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gartstein/toolspend/internal/spend/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Default is the bundled sample fixture.
//
//go:embed fixtures.yaml
var Default []byte

// Store is the subset of the repository seeding needs.
type Store interface {
	EnsureCategory(ctx context.Context, name string) (*models.Category, error)
	ToolNameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
	CreateTool(ctx context.Context, tool *models.Tool) error
}

type Fixture struct {
	Categories []string      `yaml:"categories"`
	Tools      []ToolFixture `yaml:"tools"`
}

type ToolFixture struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	Vendor           string `yaml:"vendor"`
	WebsiteURL       string `yaml:"website_url"`
	MonthlyCost      string `yaml:"monthly_cost"`
	OwnerDepartment  string `yaml:"owner_department"`
	Status           string `yaml:"status"`
	ActiveUsersCount int64  `yaml:"active_users_count"`
	Category         string `yaml:"category"`
}

// Result counts what Apply did.
type Result struct {
	Categories   int
	ToolsCreated int
	ToolsSkipped int
}

// Load decodes a fixture, rejecting unknown keys, and checks every tool.
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

func (f *Fixture) validate() error {
	var problems []string
	categories := map[string]bool{}
	for i, c := range f.Categories {
		name := strings.TrimSpace(c)
		label := fmt.Sprintf("categories[%d]", i)
		if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
			problems = append(problems, label+": name must be 1-100 characters")
			continue
		}
		if categories[name] {
			problems = append(problems, fmt.Sprintf("%s: duplicate category %q", label, name))
		}
		categories[name] = true
	}

	seen := map[string]bool{}
	for i, t := range f.Tools {
		name := strings.TrimSpace(t.Name)
		label := fmt.Sprintf("tools[%d]", i)
		if name != "" {
			label = fmt.Sprintf("tool %q", name)
		}
		if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
			problems = append(problems, label+": name must be 2-100 characters")
		}
		if seen[name] {
			problems = append(problems, label+": duplicate name")
		}
		seen[name] = true
		if n := utf8.RuneCountInString(strings.TrimSpace(t.Vendor)); n < 1 || n > 100 {
			problems = append(problems, label+": vendor must be 1-100 characters")
		}
		if _, err := models.ParseMoney(t.MonthlyCost); errors.Is(err, models.ErrAmountTooLarge) {
			problems = append(problems, label+": monthly_cost must be at most "+models.MaxMoney.String())
		} else if err != nil {
			problems = append(problems, label+": monthly_cost must be a non-negative amount with max 2 decimals")
		}
		if !models.Department(t.OwnerDepartment).Valid() {
			problems = append(problems, label+": unknown owner_department "+t.OwnerDepartment)
		}
		if t.Status != "" && !models.Status(t.Status).Valid() {
			problems = append(problems, label+": unknown status "+t.Status)
		}
		if t.ActiveUsersCount < 0 {
			problems = append(problems, label+": active_users_count must be >= 0")
		}
		if n := utf8.RuneCountInString(strings.TrimSpace(t.Category)); n < 1 || n > 100 {
			problems = append(problems, label+": category must be 1-100 characters")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid fixture: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Apply ensures every category exists by name and inserts tools whose
// names are not taken yet. Categories referenced only by tools are created
// as well. The fixture is checked again, so one built in code gets the same
// rules as one read by Load.
func Apply(ctx context.Context, store Store, f *Fixture, logger *zap.Logger) (Result, error) {
	logger = logger.Named("seed")
	var res Result
	if err := f.validate(); err != nil {
		return res, err
	}

	categories := map[string]*models.Category{}
	ensure := func(name string) (*models.Category, error) {
		name = strings.TrimSpace(name)
		if c, ok := categories[name]; ok {
			return c, nil
		}
		c, err := store.EnsureCategory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure category %q: %w", name, err)
		}
		categories[name] = c
		res.Categories++
		return c, nil
	}

	for _, name := range f.Categories {
		if _, err := ensure(name); err != nil {
			return res, err
		}
	}

	for _, t := range f.Tools {
		name := strings.TrimSpace(t.Name)
		taken, err := store.ToolNameTaken(ctx, name, 0)
		if err != nil {
			return res, fmt.Errorf("failed to check tool %q: %w", name, err)
		}
		if taken {
			logger.Debug("Tool already present, skipping", zap.String("tool", name))
			res.ToolsSkipped++
			continue
		}

		category, err := ensure(t.Category)
		if err != nil {
			return res, err
		}
		tool, err := t.toTool(category)
		if err != nil {
			return res, err
		}
		if err := store.CreateTool(ctx, tool); err != nil {
			return res, fmt.Errorf("failed to create tool %q: %w", name, err)
		}
		logger.Info("Seeded tool", zap.String("tool", name), zap.Uint("tool_id", tool.ID))
		res.ToolsCreated++
	}

	return res, nil
}

func (t ToolFixture) toTool(category *models.Category) (*models.Tool, error) {
	cost, err := models.ParseMoney(t.MonthlyCost)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", t.Name, err)
	}
	status := models.StatusActive
	if t.Status != "" {
		status = models.Status(t.Status)
	}
	return &models.Tool{
		Name:             strings.TrimSpace(t.Name),
		Description:      models.OptionalText(&t.Description),
		Vendor:           strings.TrimSpace(t.Vendor),
		WebsiteURL:       models.OptionalText(&t.WebsiteURL),
		MonthlyCost:      cost,
		OwnerDepartment:  models.Department(t.OwnerDepartment),
		Status:           status,
		ActiveUsersCount: t.ActiveUsersCount,
		CategoryID:       category.ID,
		Category:         *category,
	}, nil
}
