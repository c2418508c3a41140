package telegram_test

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI records outbound calls and serves updates from a channel.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
	sendErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}

	f.sent = append(f.sent, c)

	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
}

func (f *fakeAPI) sentCalls() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeAPI) requestCalls() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]tgbotapi.Chattable(nil), f.requests...)
}
