package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/toolspend/internal/spend/config"
	"github.com/gartstein/toolspend/internal/spend/controller"
	gorm "github.com/gartstein/toolspend/internal/spend/db"
	"github.com/gartstein/toolspend/internal/spend/events"
	"github.com/gartstein/toolspend/internal/spend/handlers"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// eventProducer is what the services publish to, plus shutdown.
type eventProducer interface {
	controller.EventProducer
	Close()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := initLogger(cfg)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := gorm.NewRepository(ctx, initDatabase(cfg), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	producer := initProducer(ctx, cfg, logger)
	defer producer.Close()

	toolSvc := controller.NewToolService(repo, producer, logger)
	analyticsSvc := controller.NewAnalyticsService(repo, logger)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	toolHandler := handlers.NewToolHandler(toolSvc, analyticsSvc, logger)

	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, cfg.Server.ShutdownTimeout, logger)
	server.RegisterHTTPHandler(handlers.NewRouter(toolHandler, logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	waitForShutdown(ctx, server, errCh, logger)
}

// loadConfig reads the config file named by TOOLSPEND_CONFIG, falling back
// to the repository default.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("TOOLSPEND_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger initializes a Zap logger for the configured level.
func initLogger(cfg *config.Config) *zap.Logger {
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}

// initDatabase maps the database settings onto the repository config.
func initDatabase(cfg *config.Config) *gorm.Config {
	return &gorm.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		Migrate:         cfg.Database.Migrate,
	}
}

// initProducer returns a Kafka producer, or a discarding one when no
// brokers are configured.
func initProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) eventProducer {
	if !cfg.EventsEnabled() {
		logger.Info("Kafka brokers not configured, change events disabled")
		return events.Discard{}
	}
	if err := events.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, logger); err != nil {
		logger.Warn("failed to reach Kafka to ensure topic", zap.Error(err))
	}
	return events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}

// waitForShutdown blocks until a signal arrives or a server fails, then shuts down servers.
func waitForShutdown(ctx context.Context, server *handlers.Server, errCh <-chan error, logger *zap.Logger) {
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
}
