package discord

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/bot/gate"
)

// DeclineReason is attached to the audit log entry of a declined member.
const DeclineReason = "Terms not accepted"

// Rest is the part of the Discord REST client used by the messenger.
type Rest interface {
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	UpdateMessage(
		channelID snowflake.ID, messageID snowflake.ID, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt,
	) (*discord.Message, error)
	UpdateInteractionResponse(
		applicationID snowflake.ID, interactionToken string, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt,
	) (*discord.Message, error)
	GetMember(guildID snowflake.ID, userID snowflake.ID, opts ...rest.RequestOpt) (*discord.Member, error)
	AddMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
	RemoveMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// Messenger performs gate actions through the Discord REST API.
// Replies carrying an interaction token edit that interaction's response.
type Messenger struct {
	rest          Rest
	applicationID snowflake.ID
	memberRoleID  snowflake.ID
}

// NewMessenger creates a Messenger. Approved members are granted memberRoleID.
func NewMessenger(rest Rest, applicationID, memberRoleID snowflake.ID) *Messenger {
	return &Messenger{
		rest:          rest,
		applicationID: applicationID,
		memberRoleID:  memberRoleID,
	}
}

// SendMessage answers an interaction, opens a DM or posts to a channel.
func (m *Messenger) SendMessage(_ context.Context, chat gate.ChatRef, reply gate.Reply) error {
	if chat.Token != "" {
		if _, err := m.rest.UpdateInteractionResponse(m.applicationID, chat.Token, buildUpdate(reply)); err != nil {
			return fmt.Errorf("failed to respond to interaction: %w", err)
		}

		return nil
	}

	channelID, err := m.resolveChannel(chat)
	if err != nil {
		return err
	}

	builder := discord.NewMessageCreateBuilder().SetContent(formatReply(reply))
	if row := actionRow(reply.Buttons); row != nil {
		builder.AddActionRow(row...)
	}

	if _, err := m.rest.CreateMessage(channelID, builder.Build()); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", channelID, err)
	}

	return nil
}

// EditMessage edits the message behind an interaction or a channel message.
func (m *Messenger) EditMessage(_ context.Context, ref gate.MessageRef, reply gate.Reply) error {
	var err error
	if ref.Chat.Token != "" {
		_, err = m.rest.UpdateInteractionResponse(m.applicationID, ref.Chat.Token, buildUpdate(reply))
	} else {
		_, err = m.rest.UpdateMessage(snowflake.ID(ref.Chat.ID), snowflake.ID(ref.MessageID), buildUpdate(reply))
	}

	if err != nil {
		return fmt.Errorf("failed to edit message %d: %w", ref.MessageID, err)
	}

	return nil
}

// SendDocument uploads the document as an attachment.
func (m *Messenger) SendDocument(_ context.Context, chat gate.ChatRef, doc gate.Document) error {
	channelID, err := m.resolveChannel(chat)
	if err != nil {
		return err
	}

	message := discord.NewMessageCreateBuilder().
		SetContent(doc.Caption).
		AddFile(doc.FileName, "", bytes.NewReader(doc.Data)).
		Build()

	if _, err := m.rest.CreateMessage(channelID, message); err != nil {
		return fmt.Errorf("failed to send %s to %d: %w", doc.FileName, channelID, err)
	}

	return nil
}

// ApproveJoinRequest grants the member role.
func (m *Messenger) ApproveJoinRequest(_ context.Context, req gate.JoinRequest) error {
	err := m.rest.AddMemberRole(snowflake.ID(req.ChatID), snowflake.ID(req.Identity.ID), m.memberRoleID)
	if err != nil {
		return fmt.Errorf("failed to grant member role to %d: %w", req.Identity.ID, err)
	}

	return nil
}

// DeclineJoinRequest withholds the member role. The member stays in the
// guild so they can still run the start command and accept.
func (m *Messenger) DeclineJoinRequest(_ context.Context, req gate.JoinRequest) error {
	err := m.rest.RemoveMemberRole(
		snowflake.ID(req.ChatID), snowflake.ID(req.Identity.ID), m.memberRoleID, rest.WithReason(DeclineReason),
	)
	if err != nil {
		return fmt.Errorf("failed to withhold member role from %d: %w", req.Identity.ID, err)
	}

	return nil
}

// resolveChannel opens a DM channel when the chat names a user.
func (m *Messenger) resolveChannel(chat gate.ChatRef) (snowflake.ID, error) {
	if !chat.User {
		return snowflake.ID(chat.ID), nil
	}

	channel, err := m.rest.CreateDMChannel(snowflake.ID(chat.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to open DM with %d: %w", chat.ID, err)
	}

	return channel.ID(), nil
}

func buildUpdate(reply gate.Reply) discord.MessageUpdate {
	builder := discord.NewMessageUpdateBuilder().
		SetContent(formatReply(reply)).
		ClearContainerComponents()

	if row := actionRow(reply.Buttons); row != nil {
		builder.AddActionRow(row...)
	}

	return builder.Build()
}

// formatReply renders the title in bold above the text.
func formatReply(reply gate.Reply) string {
	if reply.Title == "" {
		return reply.Text
	}

	return "**" + reply.Title + "**\n" + reply.Text
}

// actionRow lays out all buttons on a single row.
func actionRow(buttons []gate.Button) []discord.InteractiveComponent {
	if len(buttons) == 0 {
		return nil
	}

	row := make([]discord.InteractiveComponent, 0, len(buttons))
	for _, button := range buttons {
		switch {
		case button.URL != "":
			row = append(row, discord.NewLinkButton(button.Label, button.URL))
		case button.Data == constants.RejectButtonCustomID:
			row = append(row, discord.NewDangerButton(button.Label, button.Data))
		default:
			row = append(row, discord.NewSuccessButton(button.Label, button.Data))
		}
	}

	return row
}
