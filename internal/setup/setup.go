package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/database"
	"github.com/robalyx/termsgate/internal/redis"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/robalyx/termsgate/internal/setup/telemetry"
	"go.uber.org/zap"
)

// Version is reported with exported spans. It is set at build time.
var Version = "dev" //nolint:gochecknoglobals // set by ldflags

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	ConfigDir    string             // Directory the config file was read from
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	LogManager   *telemetry.Manager // Log management system
	Store        consent.Store      // Consent decisions
	RedisManager *redis.Manager     // Redis connection manager
	DB           database.Client    // Decision mirror, nil when disabled
	shutdown     telemetry.ShutdownFunc
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string, opts config.LoadOptions) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	shutdown := telemetry.ConfigureTracing(&cfg.Telemetry, Version, logger)

	redisManager := redis.NewManager(&cfg.Redis, logger)

	store, err := newStore(ctx, cfg, redisManager, logger)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	var db database.Client
	if cfg.PostgreSQL.Enabled {
		db, err = database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger)
		if err != nil {
			redisManager.Close()
			return nil, err
		}
	}

	return &App{
		Config:       cfg,
		ConfigDir:    configDir,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		LogManager:   logManager,
		Store:        store,
		RedisManager: redisManager,
		DB:           db,
		shutdown:     shutdown,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Flush pending spans before the loggers go away
	if err := s.shutdown(ctx); err != nil {
		s.Logger.Error("Failed to shutdown tracing", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// newStore builds the configured consent store. A Redis store must answer a
// ping before the bot starts.
func newStore(ctx context.Context, cfg *config.Config, redisManager *redis.Manager, logger *zap.Logger) (consent.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := redisManager.GetClient(redis.ConsentDBIndex)
		if err != nil {
			return nil, err
		}

		if err := redisManager.Ping(ctx, redis.ConsentDBIndex); err != nil {
			return nil, fmt.Errorf("failed to reach consent store: %w", err)
		}

		logger.Info("Using Redis consent store",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port))

		timeout := time.Duration(cfg.Store.Timeout) * time.Second

		return consent.NewRedisStore(client, consent.WithTimeout(timeout)), nil
	default:
		logger.Info("Using in-memory consent store")
		return consent.NewMemoryStore(), nil
	}
}
