// Package discord connects the consent flow to a Discord guild. New members
// count as join requests: approval grants the member role, a decline
// withholds it until the member accepts.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/bot/dispatch"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/setup/config"
	"go.uber.org/zap"
)

// Handlers are the platform-neutral handlers fed by the bot.
type Handlers struct {
	Gate        *gate.Gate
	Adjudicator *gate.Adjudicator
}

// Bot receives gateway events and hands each one to the dispatcher.
type Bot struct {
	client     bot.Client
	rest       Rest
	messenger  *Messenger
	handlers   Handlers
	dispatcher *dispatch.Dispatcher
	guildID    snowflake.ID
	logger     *zap.Logger
}

// New creates the Discord client. Handlers must be set before Run.
func New(token string, cfg *config.Discord, dispatcher *dispatch.Dispatcher, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		dispatcher: dispatcher,
		guildID:    snowflake.ID(cfg.GuildID),
		logger:     logger.Named("discord"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentDirectMessages,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnComponentInteraction:          b.handleComponentInteraction,
			OnGuildMemberJoin:               b.handleGuildMemberJoin,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.rest = client.Rest()
	b.messenger = NewMessenger(client.Rest(), client.ApplicationID(), snowflake.ID(cfg.MemberRoleID))

	return b, nil
}

// Messenger returns the messenger bound to this client.
func (b *Bot) Messenger() *Messenger {
	return b.messenger
}

// SetHandlers installs the gate and adjudicator.
func (b *Bot) SetHandlers(handlers Handlers) {
	b.handlers = handlers
}

// Run registers the start command, opens the gateway and blocks until ctx
// is done. The command is global so it also works in direct messages.
func (b *Bot) Run(ctx context.Context) error {
	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.StartCommandName,
			Description: "Show the terms",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	b.logger.Info("Gateway connected", zap.Uint64("guildID", uint64(b.guildID)))

	<-ctx.Done()

	b.client.Close(context.WithoutCancel(ctx))
	b.dispatcher.Wait()
	b.logger.Info("Gateway closed")

	return nil
}

func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	if event.Data.CommandName() != constants.StartCommandName {
		return
	}

	identity := identityOf(event.User())
	token := event.Token()

	b.dispatcher.Dispatch(context.Background(), "start", func(ctx context.Context) {
		if err := event.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		b.start(ctx, identity, token)
	})
}

func (b *Bot) handleComponentInteraction(event *events.ComponentInteractionCreate) {
	identity := identityOf(event.User())
	choice := event.Data.CustomID()
	message := gate.MessageRef{
		Chat:      gate.ChatRef{ID: int64(event.Message.ChannelID), Token: event.Token()},
		MessageID: int64(event.Message.ID),
	}

	b.dispatcher.Dispatch(context.Background(), "selection", func(ctx context.Context) {
		if err := event.DeferUpdateMessage(); err != nil {
			b.logger.Error("Failed to defer update message", zap.Error(err))
			return
		}

		b.selection(ctx, identity, message, choice)
	})
}

func (b *Bot) handleGuildMemberJoin(event *events.GuildMemberJoin) {
	if event.GuildID != b.guildID || event.Member.User.Bot {
		return
	}

	identity := identityOf(event.Member.User)

	b.dispatcher.Dispatch(context.Background(), "join_request", func(ctx context.Context) {
		b.memberJoined(ctx, identity)
	})
}

// start answers the start command through the deferred interaction response.
func (b *Bot) start(ctx context.Context, identity consent.Identity, token string) {
	err := b.handlers.Gate.HandleStart(ctx, gate.StartEvent{
		Identity: identity,
		Chat:     gate.ChatRef{ID: identity.ID, User: true, Token: token},
	})
	if err != nil {
		b.logger.Error("Failed to answer start", zap.Int64("userID", identity.ID), zap.Error(err))
	}
}

// selection records the choice. Members already in the guild are
// adjudicated again after accepting, since no join event will follow.
func (b *Bot) selection(ctx context.Context, identity consent.Identity, message gate.MessageRef, choice string) {
	err := b.handlers.Gate.HandleSelection(ctx, gate.SelectionEvent{
		Identity: identity,
		Message:  message,
		Choice:   choice,
	})
	if err != nil {
		b.logger.Error("Failed to answer selection", zap.Int64("userID", identity.ID), zap.Error(err))
	}

	if choice != constants.AcceptButtonCustomID {
		return
	}

	member, err := b.isMember(identity.ID)
	if err != nil {
		b.logger.Error("Failed to look up guild member", zap.Int64("userID", identity.ID), zap.Error(err))
		return
	}

	if !member {
		b.logger.Debug("User not in guild yet, role is granted on join", zap.Int64("userID", identity.ID))
		return
	}

	b.memberJoined(ctx, identity)
}

// memberJoined adjudicates a member of the gated guild.
func (b *Bot) memberJoined(ctx context.Context, identity consent.Identity) {
	b.handlers.Adjudicator.Handle(ctx, gate.JoinRequest{
		Identity: identity,
		ChatID:   int64(b.guildID),
	})
}

// isMember reports whether the user is in the gated guild.
func (b *Bot) isMember(userID int64) (bool, error) {
	_, err := b.rest.GetMember(b.guildID, snowflake.ID(userID))
	if err == nil {
		return true, nil
	}

	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}

	return false, err
}

// identityOf maps a Discord user onto an identity. The global display name
// stands in for the full name.
func identityOf(user discord.User) consent.Identity {
	var displayName string
	if user.GlobalName != nil {
		displayName = *user.GlobalName
	}

	return consent.NewIdentity(int64(user.ID), user.Username, displayName, "")
}
