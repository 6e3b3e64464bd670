// Command seed applies a YAML fixture of categories and sample tools to the
// configured database. Tools whose names already exist are left alone.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/toolspend/internal/spend/config"
	gorm "github.com/gartstein/toolspend/internal/spend/db"
	"github.com/gartstein/toolspend/internal/spend/seed"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "path to the service config file")
	fixturePath := pflag.StringP("file", "f", "", "fixture file to apply (bundled sample when empty)")
	skipMigrate := pflag.Bool("no-migrate", false, "do not apply schema migrations before seeding")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		logger.Fatal("failed to load fixture", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := gorm.NewRepository(ctx, &gorm.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		DBName:         cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		Migrate:        cfg.Database.Migrate && !*skipMigrate,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	var res seed.Result
	err = repo.WithTransaction(ctx, func(tx *gorm.Repository) error {
		var applyErr error
		res, applyErr = seed.Apply(ctx, tx, fixture, logger)
		return applyErr
	})
	if err != nil {
		logger.Error("seeding failed, nothing was written", zap.Error(err))
		_ = repo.Close()
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("seeding finished",
		zap.Int("categories", res.Categories),
		zap.Int("tools_created", res.ToolsCreated),
		zap.Int("tools_skipped", res.ToolsSkipped),
	)
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Load(bytes.NewReader(seed.Default))
	}
	f, err := seed.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
