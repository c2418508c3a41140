package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/termsgate/internal/database/migrations"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client defines the methods that a database client must implement.
type Client interface {
	// Model returns the repository containing all model operations.
	Model() *Repository
	// Close gracefully shuts down the database connection.
	Close() error
	// DB returns the underlying bun.DB instance.
	DB() *bun.DB
}

// clientImpl represents the concrete implementation of the database client.
type clientImpl struct {
	db     *bun.DB
	logger *zap.Logger
	repo   *Repository
}

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(ctx context.Context, cfg *config.PostgreSQL, logger *zap.Logger) (Client, error) {
	logger = logger.Named("database")

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("termsgate"),
		pgdriver.WithTimeout(10*time.Second),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	// Set Sonic as the JSON provider
	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(NewHook(logger))
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.DBName)))

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	client := &clientImpl{
		db:     db,
		logger: logger,
		repo:   NewRepository(db, logger),
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName))

	return client, nil
}

// Migrate applies every registered migration that has not run yet.
func Migrate(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			logger.Warn("Failed to unlock migrations", zap.Error(err))
		}
	}()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if !group.IsZero() {
		logger.Info("Automatically ran migrations", zap.String("group", group.String()))
	}

	return nil
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// Model returns the repository containing all model operations.
func (c *clientImpl) Model() *Repository {
	return c.repo
}

// DB returns the underlying bun.DB instance.
func (c *clientImpl) DB() *bun.DB {
	return c.db
}
