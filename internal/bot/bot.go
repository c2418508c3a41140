// Package bot assembles the consent flow for the configured platform.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robalyx/termsgate/internal/bot/discord"
	"github.com/robalyx/termsgate/internal/bot/dispatch"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/bot/telegram"
	"github.com/robalyx/termsgate/internal/decisionlog"
	"github.com/robalyx/termsgate/internal/proof"
	"github.com/robalyx/termsgate/internal/setup"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/robalyx/termsgate/pkg/utils"
	"go.uber.org/zap"
)

// Runner is a connected platform adapter.
type Runner interface {
	Run(ctx context.Context) error
}

// Components are the platform-neutral parts shared by every adapter.
type Components struct {
	Log      decisionlog.Writer
	Renderer gate.Renderer
	Settings gate.Settings
}

// NewComponents builds the decision log, proof generator and gate settings
// from the application config.
func NewComponents(app *setup.App) Components {
	cfg := app.Config

	var log decisionlog.Writer = decisionlog.NewFileLog(cfg.Logs.Dir, cfg.Logs.AcceptFile, cfg.Logs.RejectFile)
	if app.DB != nil {
		log = decisionlog.NewMulti(log, decisionlog.NewMirror(app.DB.Model().Consent()))
		app.Logger.Info("Mirroring decisions to PostgreSQL")
	}

	return Components{
		Log:      log,
		Renderer: proof.NewGenerator(cfg.Terms.Brand, cfg.Terms.Lines),
		Settings: gate.Settings{
			TermsTitle:   cfg.Terms.Title,
			TermsPrompt:  cfg.Terms.Prompt,
			TermsVersion: cfg.Terms.Version,
			ChannelLink:  cfg.Bot.ChannelLink,
			Operator:     gate.ChatRef{ID: cfg.Bot.OperatorID, User: true},
		},
	}
}

// New connects to the configured platform and wires the gate to it.
func New(ctx context.Context, app *setup.App) (Runner, error) {
	components := NewComponents(app)
	dispatcher := dispatch.New(app.Config.Bot.Workers, app.Logger)

	switch app.Config.Bot.Platform {
	case config.PlatformDiscord:
		return newDiscord(app, components, dispatcher)
	default:
		return newTelegram(ctx, app, components, dispatcher)
	}
}

func newTelegram(
	ctx context.Context, app *setup.App, components Components, dispatcher *dispatch.Dispatcher,
) (Runner, error) {
	cfg := app.Config

	api, err := utils.WithRetry(ctx, func() (*tgbotapi.BotAPI, error) {
		return tgbotapi.NewBotAPI(cfg.Bot.Token)
	}, utils.GetStartupRetryOptions(cfg.Bot.StartupRetries), app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	api.Debug = cfg.Telegram.Debug

	app.Logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	messenger := telegram.NewMessenger(api)
	handlers := telegram.Handlers{
		Gate: gate.New(
			app.Store, components.Log, components.Renderer, messenger, components.Settings, app.Logger,
		),
		Adjudicator: gate.NewAdjudicator(app.Store, messenger, cfg.Bot.ChannelLink, app.Logger),
	}

	return telegram.New(api, handlers, dispatcher, cfg.Telegram.PollTimeout, app.Logger), nil
}

func newDiscord(app *setup.App, components Components, dispatcher *dispatch.Dispatcher) (Runner, error) {
	cfg := app.Config

	client, err := discord.New(cfg.Bot.Token, &cfg.Discord, dispatcher, app.Logger)
	if err != nil {
		return nil, err
	}

	// Discord operators receive documents in a channel rather than a DM.
	components.Settings.Operator.User = false

	messenger := client.Messenger()
	client.SetHandlers(discord.Handlers{
		Gate: gate.New(
			app.Store, components.Log, components.Renderer, messenger, components.Settings, app.Logger,
		),
		Adjudicator: gate.NewAdjudicator(app.Store, messenger, cfg.Bot.ChannelLink, app.Logger),
	})

	return client, nil
}
