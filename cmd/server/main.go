// Command server runs the FIGO 2023 staging REST API. Postgres persistence,
// the Redis cache tier and the AI collaborators are enabled by configuration.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/figo-endometrial-mcp-server/internal/api"
	"github.com/figo-endometrial-mcp-server/internal/cache"
	"github.com/figo-endometrial-mcp-server/internal/config"
	"github.com/figo-endometrial-mcp-server/internal/database"
	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/mcp"
	"github.com/figo-endometrial-mcp-server/internal/repository"
	"github.com/figo-endometrial-mcp-server/internal/service"
	"github.com/figo-endometrial-mcp-server/pkg/external"
)

func main() {
	configFile := pflag.String("config", "", "path to a YAML configuration file")
	pflag.Parse()

	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	opts := []service.AssessorOption{
		service.WithMemoryCache(cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.MemoryTTL)),
	}
	healthChecks := map[string]func(context.Context) error{}

	if database.Enabled(cfg.Database) {
		if err := migrate(ctx, cfg.Database, logger); err != nil {
			return err
		}
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		opts = append(opts, service.WithRepository(repository.NewAssessmentRepository(db.Pool, logger)))
		healthChecks["database"] = db.Health
	}

	if cfg.Cache.RedisURL != "" {
		redisCache, err := external.NewRedisCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using memory cache only")
		} else {
			defer redisCache.Close()
			opts = append(opts, service.WithRemoteCache(redisCache))
			healthChecks["redis"] = redisCache.Ping
		}
	}

	store, err := openFeedbackStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	assessor := service.NewAssessor(logger, opts...)
	scan := external.NewScanClient(cfg.ExternalAPI.Scan, logger)
	explain := external.NewExplainClient(cfg.ExternalAPI.Explain, logger)

	deps := api.Dependencies{
		Assessor:     assessor,
		Feedback:     store,
		Scan:         scan,
		Explain:      explain,
		Logger:       logger,
		HealthChecks: healthChecks,
	}
	if cfg.MCP.Enabled {
		toolServer := mcp.NewToolServer(cfg.MCP.ServerName, cfg.MCP.ServerVersion, mcp.Tools{
			Assessor: assessor,
			Feedback: store,
			Scan:     scan,
			Explain:  explain,
			Logger:   logger,
		})
		deps.MCP = mcp.NewHTTPHandler(toolServer)
		deps.MCPPath = cfg.MCP.Path
	}

	server := api.NewServer(configManager, deps)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": configManager.Environment(),
		"database":    database.Enabled(cfg.Database),
		"feedback":    cfg.Feedback.Backend,
		"mcp":         cfg.MCP.Enabled,
	}).Info("Starting FIGO staging server")

	return server.Start(ctx)
}

func migrate(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(database.URL(cfg), cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}

func openFeedbackStore(cfg *domain.Config, logger *logrus.Logger) (feedback.Store, error) {
	if cfg.Feedback.Backend == "postgres" {
		logger.Info("Using Postgres feedback store")
		return feedback.NewPostgresStoreFromURL(database.URL(cfg.Database))
	}
	logger.WithField("path", cfg.Feedback.SQLitePath).Info("Using SQLite feedback store")
	return feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
}
