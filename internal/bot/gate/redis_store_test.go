package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unavailableRedisStore returns a store whose server answers every command
// with an error.
func unavailableRedisStore(t *testing.T) consent.Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	mr.SetError("LOADING dataset in memory")

	return consent.NewRedisStore(client, consent.WithTimeout(200*time.Millisecond))
}

func TestUnavailableRedisAsksToRetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{store: unavailableRedisStore(t)})
	alice := consent.NewIdentity(555, "alice", "", "")

	// Dispatched handlers carry no deadline
	ctx := context.WithoutCancel(t.Context())

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, h.gate.HandleStart(ctx, start(alice)))
		assert.NoError(t, h.gate.HandleSelection(ctx, selection(alice, constants.AcceptButtonCustomID)))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handlers did not return while Redis was failing")
	}

	replies := h.messenger.sentTo(555)
	require.Len(t, replies, 1)
	assert.Equal(t, constants.TryAgainText, replies[0].Text)

	require.Len(t, h.messenger.edited, 1)
	assert.Equal(t, constants.TryAgainText, h.messenger.edited[0].Reply.Text)
	assert.Empty(t, h.readLog(t, "AGREE.txt"))
}

func TestUnavailableRedisDeclinesJoinRequest(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	adjudicator := gate.NewAdjudicator(unavailableRedisStore(t), messenger, channelLink, zap.NewNop())

	outcome := adjudicator.Handle(context.WithoutCancel(t.Context()), gate.JoinRequest{
		Identity: consent.NewIdentity(555, "alice", "", ""),
		ChatID:   -100,
	})

	require.Error(t, outcome.DecisionErr)
	assert.Equal(t, gate.VerdictDeclined, outcome.Verdict)
	assert.Len(t, messenger.declined, 1)
}
