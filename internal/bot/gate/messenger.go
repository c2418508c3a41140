package gate

import (
	"context"

	"github.com/robalyx/termsgate/internal/consent"
)

// ChatRef addresses a conversation on the platform.
type ChatRef struct {
	ID    int64  // Chat, channel or user ID
	User  bool   // ID names a user; the transport opens a direct conversation
	Token string // Transport reply handle, such as an interaction token
}

// MessageRef addresses a message previously sent to a chat.
type MessageRef struct {
	Chat      ChatRef
	MessageID int64
}

// Button is an inline action. Buttons with a URL open a link, the others
// send Data back as a selection.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Reply is the content of a text message.
type Reply struct {
	Title   string
	Text    string
	Buttons []Button
}

// Document is a binary attachment.
type Document struct {
	FileName string
	Data     []byte
	Caption  string
}

// JoinRequest is a pending request to join the gated channel.
type JoinRequest struct {
	Identity   consent.Identity
	ChatID     int64 // Channel or guild being joined
	UserChatID int64 // Conversation usable to reach the requester, if any
}

// Messenger performs the outbound platform actions.
type Messenger interface {
	SendMessage(ctx context.Context, chat ChatRef, reply Reply) error
	EditMessage(ctx context.Context, msg MessageRef, reply Reply) error
	SendDocument(ctx context.Context, chat ChatRef, doc Document) error
	ApproveJoinRequest(ctx context.Context, req JoinRequest) error
	DeclineJoinRequest(ctx context.Context, req JoinRequest) error
}

// StartEvent is a user asking to see the terms.
type StartEvent struct {
	Identity consent.Identity
	Chat     ChatRef
}

// SelectionEvent is a user pressing one of the terms buttons.
type SelectionEvent struct {
	Identity consent.Identity
	Message  MessageRef
	Choice   string
}
