package discord

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/consent"
	"go.uber.org/zap"
)

// NewBotWithRest builds a Bot that talks to rest without a gateway.
func NewBotWithRest(rest Rest, applicationID, guildID, memberRoleID snowflake.ID, logger *zap.Logger) *Bot {
	return &Bot{
		rest:      rest,
		messenger: NewMessenger(rest, applicationID, memberRoleID),
		guildID:   guildID,
		logger:    logger,
	}
}

func (b *Bot) Start(ctx context.Context, identity consent.Identity, token string) {
	b.start(ctx, identity, token)
}

func (b *Bot) Select(ctx context.Context, identity consent.Identity, message gate.MessageRef, choice string) {
	b.selection(ctx, identity, message, choice)
}

func (b *Bot) MemberJoined(ctx context.Context, identity consent.Identity) {
	b.memberJoined(ctx, identity)
}
