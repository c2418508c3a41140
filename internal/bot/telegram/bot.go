// Package telegram connects the consent flow to the Telegram Bot API.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/bot/dispatch"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/consent"
	"go.uber.org/zap"
)

// AllowedUpdates are the update kinds requested from getUpdates.
var AllowedUpdates = []string{"message", "callback_query", "chat_join_request"} //nolint:gochecknoglobals // -

// API is the part of the Bot API client used by the bot.
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handlers are the platform-neutral handlers fed by the bot.
type Handlers struct {
	Gate        *gate.Gate
	Adjudicator *gate.Adjudicator
}

// Bot polls Telegram for updates and hands each one to the dispatcher.
type Bot struct {
	api         API
	handlers    Handlers
	dispatcher  *dispatch.Dispatcher
	pollTimeout int
	logger      *zap.Logger
}

// New creates a Bot.
func New(api API, handlers Handlers, dispatcher *dispatch.Dispatcher, pollTimeout int, logger *zap.Logger) *Bot {
	return &Bot{
		api:         api,
		handlers:    handlers,
		dispatcher:  dispatcher,
		pollTimeout: pollTimeout,
		logger:      logger.Named("telegram"),
	}
}

// Run long-polls until ctx is done, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	config.AllowedUpdates = AllowedUpdates

	updates := b.api.GetUpdatesChan(config)

	b.logger.Info("Polling for updates", zap.Int("timeout", b.pollTimeout))

	defer func() {
		b.dispatcher.Wait()
		b.logger.Info("Stopped polling")
	}()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate routes an update to the matching handler.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || !msg.IsCommand() || msg.Command() != constants.StartCommandName {
			return
		}

		event := gate.StartEvent{
			Identity: identityOf(msg.From),
			Chat:     gate.ChatRef{ID: msg.Chat.ID},
		}

		b.dispatcher.Dispatch(ctx, "start", func(ctx context.Context) {
			if err := b.handlers.Gate.HandleStart(ctx, event); err != nil {
				b.logger.Error("Failed to answer start", zap.Int64("userID", event.Identity.ID), zap.Error(err))
			}
		})

	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.From == nil || query.Message == nil {
			return
		}

		event := gate.SelectionEvent{
			Identity: identityOf(query.From),
			Message: gate.MessageRef{
				Chat:      gate.ChatRef{ID: query.Message.Chat.ID},
				MessageID: int64(query.Message.MessageID),
			},
			Choice: query.Data,
		}

		b.dispatcher.Dispatch(ctx, "selection", func(ctx context.Context) {
			// Stop the client spinner before doing any work
			if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
				b.logger.Warn("Failed to answer callback query", zap.String("queryID", query.ID), zap.Error(err))
			}

			if err := b.handlers.Gate.HandleSelection(ctx, event); err != nil {
				b.logger.Error("Failed to answer selection", zap.Int64("userID", event.Identity.ID), zap.Error(err))
			}
		})

	case update.ChatJoinRequest != nil:
		request := update.ChatJoinRequest
		req := gate.JoinRequest{
			Identity:   identityOf(&request.From),
			ChatID:     request.Chat.ID,
			UserChatID: request.From.ID,
		}

		b.dispatcher.Dispatch(ctx, "join_request", func(ctx context.Context) {
			b.handlers.Adjudicator.Handle(ctx, req)
		})
	}
}

func identityOf(user *tgbotapi.User) consent.Identity {
	return consent.NewIdentity(user.ID, user.UserName, user.FirstName, user.LastName)
}
