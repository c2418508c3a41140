package gate_test

import (
	"testing"
	"time"

	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/bot/gate"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const gatedChatID = int64(-1001234567890)

func joinRequest(id consent.Identity) gate.JoinRequest {
	return gate.JoinRequest{Identity: id, ChatID: gatedChatID, UserChatID: id.ID}
}

func TestAdjudicatorFollowsDecision(t *testing.T) {
	t.Parallel()

	store := consent.NewMemoryStore()
	messenger := &fakeMessenger{}
	adjudicator := gate.NewAdjudicator(store, messenger, channelLink, zap.NewNop())

	alice := consent.NewIdentity(555, "alice", "Alice", "A")
	bob := consent.NewIdentity(777, "bob", "", "")
	carol := consent.NewIdentity(999, "carol", "", "")

	_, _, err := store.Record(t.Context(), alice, consent.DecisionAccepted, time.Now())
	require.NoError(t, err)
	_, _, err = store.Record(t.Context(), bob, consent.DecisionRejected, time.Now())
	require.NoError(t, err)

	outcome := adjudicator.Handle(t.Context(), joinRequest(alice))
	assert.Equal(t, gate.VerdictApproved, outcome.Verdict)
	require.NoError(t, outcome.Err())

	outcome = adjudicator.Handle(t.Context(), joinRequest(bob))
	assert.Equal(t, gate.VerdictDeclined, outcome.Verdict)
	require.NoError(t, outcome.Err())

	outcome = adjudicator.Handle(t.Context(), joinRequest(carol))
	assert.Equal(t, gate.VerdictDeclined, outcome.Verdict)
	require.NoError(t, outcome.Err())

	require.Len(t, messenger.approved, 1)
	assert.Equal(t, int64(555), messenger.approved[0].Identity.ID)
	assert.Equal(t, gatedChatID, messenger.approved[0].ChatID)
	require.Len(t, messenger.declined, 2)

	approved := messenger.sentTo(555)
	require.Len(t, approved, 1)
	assert.Equal(t, constants.JoinApprovedText, approved[0].Text)
	assert.Equal(t, []gate.Button{{Label: constants.OpenChannelButtonLabel, URL: channelLink}}, approved[0].Buttons)

	declined := messenger.sentTo(777)
	require.Len(t, declined, 1)
	assert.Equal(t, constants.JoinDeclinedText, declined[0].Text)
}

func TestAdjudicatorAfterGateFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	adjudicator := gate.NewAdjudicator(h.store, h.messenger, channelLink, zap.NewNop())

	alice := consent.NewIdentity(555, "alice", "Alice", "A")
	bob := consent.NewIdentity(777, "", "", "")

	require.NoError(t, h.gate.HandleStart(t.Context(), start(alice)))
	require.NoError(t, h.gate.HandleSelection(t.Context(), selection(alice, constants.AcceptButtonCustomID)))
	require.NoError(t, h.gate.HandleStart(t.Context(), start(bob)))
	require.NoError(t, h.gate.HandleSelection(t.Context(), selection(bob, constants.RejectButtonCustomID)))

	assert.Equal(t, gate.VerdictApproved, adjudicator.Handle(t.Context(), joinRequest(alice)).Verdict)
	assert.Equal(t, gate.VerdictDeclined, adjudicator.Handle(t.Context(), joinRequest(bob)).Verdict)
}

func TestAdjudicatorStoreFailureDeclines(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	adjudicator := gate.NewAdjudicator(failingStore{}, messenger, channelLink, zap.NewNop())

	outcome := adjudicator.Handle(t.Context(), joinRequest(consent.Identity{ID: 555, Username: "alice"}))
	assert.Equal(t, gate.VerdictDeclined, outcome.Verdict)
	require.ErrorIs(t, outcome.DecisionErr, errStore)
	require.NoError(t, outcome.AdjudicationErr)
	assert.Len(t, messenger.declined, 1)
}

func TestAdjudicatorPlatformFailure(t *testing.T) {
	t.Parallel()

	store := consent.NewMemoryStore()
	messenger := &fakeMessenger{joinErr: errPlatform}
	adjudicator := gate.NewAdjudicator(store, messenger, channelLink, zap.NewNop())

	alice := consent.Identity{ID: 555, Username: "alice"}
	_, _, err := store.Record(t.Context(), alice, consent.DecisionAccepted, time.Now())
	require.NoError(t, err)

	outcome := adjudicator.Handle(t.Context(), joinRequest(alice))
	assert.Equal(t, gate.VerdictApproved, outcome.Verdict)
	require.ErrorIs(t, outcome.AdjudicationErr, errPlatform)
	require.ErrorIs(t, outcome.Err(), errPlatform)
	assert.Empty(t, messenger.approved)
}

func TestAdjudicatorNotifyFailureIsContained(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{sendErr: func(gate.ChatRef) error { return errUnreachable }}
	adjudicator := gate.NewAdjudicator(consent.NewMemoryStore(), messenger, channelLink, zap.NewNop())

	outcome := adjudicator.Handle(t.Context(), joinRequest(consent.Identity{ID: 777, Username: "bob"}))
	assert.Equal(t, gate.VerdictDeclined, outcome.Verdict)
	require.NoError(t, outcome.AdjudicationErr)
	require.ErrorIs(t, outcome.NotifyErr, errUnreachable)
	assert.Len(t, messenger.declined, 1)
}

func TestAdjudicatorNotifiesUserDirectlyWithoutChat(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	adjudicator := gate.NewAdjudicator(consent.NewMemoryStore(), messenger, "", zap.NewNop())

	adjudicator.Handle(t.Context(), gate.JoinRequest{Identity: consent.Identity{ID: 42}, ChatID: gatedChatID})

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, gate.ChatRef{ID: 42, User: true}, messenger.sent[0].Chat)
}
