package gate_test

import (
	"context"
	"sync"

	"github.com/robalyx/termsgate/internal/bot/gate"
)

type sentMessage struct {
	Chat  gate.ChatRef
	Reply gate.Reply
}

type editedMessage struct {
	Message gate.MessageRef
	Reply   gate.Reply
}

type sentDocument struct {
	Chat gate.ChatRef
	Doc  gate.Document
}

// fakeMessenger records every outbound action.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edited    []editedMessage
	documents []sentDocument
	approved  []gate.JoinRequest
	declined  []gate.JoinRequest

	sendErr     func(chat gate.ChatRef) error
	editErr     error
	documentErr error
	joinErr     error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chat gate.ChatRef, reply gate.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		if err := f.sendErr(chat); err != nil {
			return err
		}
	}

	f.sent = append(f.sent, sentMessage{Chat: chat, Reply: reply})

	return nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, msg gate.MessageRef, reply gate.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editErr != nil {
		return f.editErr
	}

	f.edited = append(f.edited, editedMessage{Message: msg, Reply: reply})

	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, chat gate.ChatRef, doc gate.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.documentErr != nil {
		return f.documentErr
	}

	f.documents = append(f.documents, sentDocument{Chat: chat, Doc: doc})

	return nil
}

func (f *fakeMessenger) ApproveJoinRequest(_ context.Context, req gate.JoinRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.joinErr != nil {
		return f.joinErr
	}

	f.approved = append(f.approved, req)

	return nil
}

func (f *fakeMessenger) DeclineJoinRequest(_ context.Context, req gate.JoinRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.joinErr != nil {
		return f.joinErr
	}

	f.declined = append(f.declined, req)

	return nil
}

// sentTo returns the messages sent to a chat ID.
func (f *fakeMessenger) sentTo(id int64) []gate.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	var replies []gate.Reply

	for _, msg := range f.sent {
		if msg.Chat.ID == id {
			replies = append(replies, msg.Reply)
		}
	}

	return replies
}
