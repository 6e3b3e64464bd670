// Package db is the data store of the spend tracker. It persists tools and
// categories in PostgreSQL through GORM and runs the filtered listings and
// aggregation queries the services build on.
package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/toolspend/internal/spend/db/models"
	e "github.com/gartstein/toolspend/internal/spend/errors"
	"github.com/gartstein/toolspend/internal/spend/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the retries while the database comes up.
	ConnectTimeout time.Duration
	// Migrate applies the embedded schema migrations after connecting.
	Migrate bool
}

// DSN returns the key/value connection string used by the GORM driver.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrationURL returns the URL form of the connection used by golang-migrate.
func (c *Config) MigrationURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewRepository connects to PostgreSQL, retrying with exponential backoff
// until cfg.ConnectTimeout elapses, and applies migrations when asked to.
func NewRepository(ctx context.Context, cfg *Config, logger *zap.Logger) (*Repository, error) {
	logger = logger.Named("db")

	var db *gorm.DB
	connect := func() error {
		conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		policy.MaxElapsedTime = cfg.ConnectTimeout
	}
	err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Migrate {
		if err := RunMigrations(cfg.MigrationURL()); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	return &Repository{db: db}, nil
}

// New wraps an already opened GORM handle.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateTool(ctx context.Context, tool *models.Tool) error {
	record := dbmodels.ToolFromDomain(tool)
	result := r.db.WithContext(ctx).Omit("Category").Create(record)
	if result.Error != nil {
		return translate(result.Error)
	}
	tool.ID = record.ID
	tool.CreatedAt = record.CreatedAt
	tool.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *Repository) GetTool(ctx context.Context, id uint) (*models.Tool, error) {
	var record dbmodels.Tool
	result := r.db.WithContext(ctx).Preload("Category").First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return record.ToDomain(), nil
}

// UpdateTool writes only the supplied changes and refreshes updated_at.
func (r *Repository) UpdateTool(ctx context.Context, id uint, changes *models.ToolChanges) error {
	values := changeSet(changes)
	values["updated_at"] = r.db.NowFunc()

	result := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func changeSet(c *models.ToolChanges) map[string]interface{} {
	values := map[string]interface{}{}
	if c.Name != nil {
		values["name"] = *c.Name
	}
	if c.Description != nil {
		values["description"] = nullIfEmpty(*c.Description)
	}
	if c.Vendor != nil {
		values["vendor"] = *c.Vendor
	}
	if c.WebsiteURL != nil {
		values["website_url"] = nullIfEmpty(*c.WebsiteURL)
	}
	if c.MonthlyCost != nil {
		values["monthly_cost"] = *c.MonthlyCost
	}
	if c.OwnerDepartment != nil {
		values["owner_department"] = *c.OwnerDepartment
	}
	if c.Status != nil {
		values["status"] = *c.Status
	}
	if c.ActiveUsersCount != nil {
		values["active_users_count"] = *c.ActiveUsersCount
	}
	if c.CategoryID != nil {
		values["category_id"] = *c.CategoryID
	}
	return values
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ToolNameTaken reports whether another tool already uses name. excludeID
// skips the tool being renamed; pass 0 on create.
func (r *Repository) ToolNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&dbmodels.Tool{}).Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	result := query.Count(&count)
	return count > 0, result.Error
}

func (r *Repository) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var record dbmodels.Category
	result := r.db.WithContext(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrCategoryNotFound
		}
		return nil, result.Error
	}
	return &models.Category{ID: record.ID, Name: record.Name}, nil
}

// EnsureCategory returns the category called name, creating it if needed.
func (r *Repository) EnsureCategory(ctx context.Context, name string) (*models.Category, error) {
	record := dbmodels.Category{Name: name}
	result := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	return &models.Category{ID: record.ID, Name: record.Name}, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translate maps constraint violations reported by the store onto the
// domain errors. The unique index on tool.name is what finally enforces
// uniqueness when two creates race past the pre-check.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", e.ErrDuplicateName, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", e.ErrCategoryNotFound, err)
	default:
		return err
	}
}
