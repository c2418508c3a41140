package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robalyx/termsgate/internal/bot"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/database"
	"github.com/robalyx/termsgate/internal/database/types"
	"github.com/robalyx/termsgate/internal/decisionlog"
	"github.com/robalyx/termsgate/internal/proof"
	"github.com/robalyx/termsgate/internal/setup"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"

	// ShutdownTimeout bounds the time spent flushing on exit.
	ShutdownTimeout = 10 * time.Second
)

var (
	// ErrMissingUserID is returned when render-proof or history is called without --id.
	ErrMissingUserID = errors.New("--id is required")
	// ErrMirrorDisabled is returned by history when no database mirror is configured.
	ErrMirrorDisabled = errors.New("postgresql mirror is not enabled")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "termsgate",
		Usage: "Gate channel access behind accepted terms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "Only look for bot.toml in this directory",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Dotenv file loaded before reading the environment",
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start the bot",
				Action: runBot,
			},
			{
				Name:   "check-config",
				Usage:  "Load and validate the configuration",
				Action: checkConfig,
			},
			{
				Name:  "render-proof",
				Usage: "Render an agreement document without sending it",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "User ID printed on the document"},
					&cli.StringFlag{Name: "username", Usage: "Username printed on the document"},
					&cli.StringFlag{Name: "name", Usage: "Full name printed on the document"},
					&cli.StringFlag{Name: "out", Usage: "Output directory", Value: "."},
				},
				Action: renderProof,
			},
			{
				Name:  "history",
				Usage: "Print a user's mirrored decisions, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "User ID to look up"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum records to print", Value: 20},
				},
				Action: history,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func loadOptions(c *cli.Command) config.LoadOptions {
	return config.LoadOptions{
		Dir:     c.String("config-dir"),
		EnvFile: c.String("env-file"),
	}
}

func runBot(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, BotLogDir, loadOptions(c))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()

		app.Cleanup(cleanupCtx)
	}()

	runner, err := bot.New(ctx, app)
	if err != nil {
		app.Logger.Error("Failed to create bot", zap.Error(err))
		return err
	}

	app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...",
		zap.String("platform", app.Config.Bot.Platform),
		zap.String("configDir", app.ConfigDir),
		zap.String("sessionDir", app.LogManager.GetCurrentSessionDir()),
		zap.String("instanceID", app.LogManager.GetInstanceID()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error("Bot stopped with error", zap.Error(err))
		return err
	}

	app.Logger.Info("Bot stopped")

	return nil
}

func checkConfig(_ context.Context, c *cli.Command) error {
	cfg, dir, err := config.LoadConfig(loadOptions(c))
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if dir == "" {
		dir = "(environment only)"
	}

	log.Printf("Configuration OK: platform=%s store=%s source=%s", cfg.Bot.Platform, cfg.Store.Backend, dir)

	return nil
}

func renderProof(_ context.Context, c *cli.Command) error {
	id := c.Int("id")
	if id == 0 {
		return ErrMissingUserID
	}

	cfg, _, err := config.LoadConfig(loadOptions(c))
	if err != nil {
		return err
	}

	identity := consent.NewIdentity(id, c.String("username"), c.String("name"), "")

	data, err := proof.NewGenerator(cfg.Terms.Brand, cfg.Terms.Lines).Render(identity)
	if err != nil {
		return err
	}

	path := filepath.Join(c.String("out"), proof.FileName(identity.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("Wrote %s", path)

	return nil
}

func history(ctx context.Context, c *cli.Command) error {
	id := c.Int("id")
	if id == 0 {
		return ErrMissingUserID
	}

	cfg, _, err := config.LoadConfig(loadOptions(c))
	if err != nil {
		return err
	}

	if !cfg.PostgreSQL.Enabled {
		return ErrMirrorDisabled
	}

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	records, err := db.Model().Consent().ListByUser(ctx, id, int(c.Int("limit")))
	if errors.Is(err, types.ErrNoConsentRecords) {
		log.Printf("No decisions recorded for %d", id)
		return nil
	}

	if err != nil {
		return err
	}

	for _, record := range records {
		entry, err := decisionlog.EntryFromRecord(record)
		if err != nil {
			return err
		}

		fmt.Print(entry.Format())
	}

	return nil
}
