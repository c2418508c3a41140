package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robalyx/termsgate/internal/bot/gate"
)

// Sender is the part of the Bot API client used for outbound calls.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger performs gate actions through the Telegram Bot API.
type Messenger struct {
	sender Sender
}

// NewMessenger creates a Messenger backed by sender.
func NewMessenger(sender Sender) *Messenger {
	return &Messenger{sender: sender}
}

// SendMessage sends an HTML message with an optional inline keyboard.
func (m *Messenger) SendMessage(_ context.Context, chat gate.ChatRef, reply gate.Reply) error {
	msg := tgbotapi.NewMessage(chat.ID, formatReply(reply))
	msg.ParseMode = tgbotapi.ModeHTML

	if markup := keyboard(reply.Buttons); markup != nil {
		msg.ReplyMarkup = *markup
	}

	if _, err := m.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chat.ID, err)
	}

	return nil
}

// EditMessage replaces the text and keyboard of a sent message. A reply
// without buttons removes the keyboard.
func (m *Messenger) EditMessage(_ context.Context, ref gate.MessageRef, reply gate.Reply) error {
	edit := tgbotapi.NewEditMessageText(ref.Chat.ID, int(ref.MessageID), formatReply(reply))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard(reply.Buttons)

	if _, err := m.sender.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message %d in %d: %w", ref.MessageID, ref.Chat.ID, err)
	}

	return nil
}

// SendDocument uploads the document from memory.
func (m *Messenger) SendDocument(_ context.Context, chat gate.ChatRef, doc gate.Document) error {
	upload := tgbotapi.NewDocument(chat.ID, tgbotapi.FileBytes{Name: doc.FileName, Bytes: doc.Data})
	upload.Caption = doc.Caption

	if _, err := m.sender.Send(upload); err != nil {
		return fmt.Errorf("failed to send %s to %d: %w", doc.FileName, chat.ID, err)
	}

	return nil
}

// ApproveJoinRequest approves a pending chat join request.
func (m *Messenger) ApproveJoinRequest(_ context.Context, req gate.JoinRequest) error {
	_, err := m.sender.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: req.ChatID},
		UserID:     req.Identity.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to approve join request of %d: %w", req.Identity.ID, err)
	}

	return nil
}

// DeclineJoinRequest declines a pending chat join request.
func (m *Messenger) DeclineJoinRequest(_ context.Context, req gate.JoinRequest) error {
	_, err := m.sender.Request(tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: req.ChatID},
		UserID:     req.Identity.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to decline join request of %d: %w", req.Identity.ID, err)
	}

	return nil
}

// formatReply renders the title in bold above the escaped text.
func formatReply(reply gate.Reply) string {
	text := html.EscapeString(reply.Text)
	if reply.Title == "" {
		return text
	}

	return "<b>" + html.EscapeString(reply.Title) + "</b>\n" + text
}

// keyboard lays out one button per row.
func keyboard(buttons []gate.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		if button.URL != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(button.Label, button.URL)))
			continue
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data)))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)

	return &markup
}
