package consent_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*consent.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
		DisableRetry: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return consent.NewRedisStore(client, consent.WithTimeout(time.Second)), mr
}

func TestRedisStoreGetMissing(t *testing.T) {
	t.Parallel()

	store, _ := setupRedisStore(t)

	d, err := store.Get(t.Context(), 123)
	require.NoError(t, err)
	assert.Equal(t, consent.DecisionUnset, d)
}

func TestRedisStoreRecord(t *testing.T) {
	t.Parallel()

	store, mr := setupRedisStore(t)
	identity := consent.NewIdentity(777, "", "Eve", "")

	current, applied, err := store.Record(t.Context(), identity, consent.DecisionRejected, time.Now())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, consent.DecisionRejected, current)
	assert.True(t, mr.Exists(consent.RedisKeyPrefix+"777"))

	current, applied, err = store.Record(t.Context(), identity, consent.DecisionAccepted, time.Now())
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, consent.DecisionRejected, current)

	d, err := store.Get(t.Context(), 777)
	require.NoError(t, err)
	assert.Equal(t, consent.DecisionRejected, d)
}

func TestRedisStoreRejectsUnset(t *testing.T) {
	t.Parallel()

	store, mr := setupRedisStore(t)

	_, _, err := store.Record(t.Context(), consent.NewIdentity(5, "x", "", ""), consent.DecisionUnset, time.Now())
	require.ErrorIs(t, err, consent.ErrInvalidDecision)
	assert.False(t, mr.Exists(consent.RedisKeyPrefix+"5"))
}

func TestRedisStoreBackendFailure(t *testing.T) {
	t.Parallel()

	store, mr := setupRedisStore(t)
	mr.SetError("LOADING dataset in memory")

	// Handlers run without a deadline of their own
	ctx := context.WithoutCancel(t.Context())
	start := time.Now()

	_, err := store.Get(ctx, 1)
	require.Error(t, err)

	_, applied, err := store.Record(ctx, consent.NewIdentity(1, "x", "", ""), consent.DecisionAccepted, time.Now())
	require.Error(t, err)
	assert.False(t, applied)

	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRedisStoreTimeoutWithRetryingClient(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Default options retry read-only commands until the context ends
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	store := consent.NewRedisStore(client, consent.WithTimeout(200*time.Millisecond))
	mr.SetError("LOADING dataset in memory")

	done := make(chan error, 1)
	go func() {
		_, err := store.Get(context.WithoutCancel(t.Context()), 1)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Get did not return on a backend error")
	}
}
