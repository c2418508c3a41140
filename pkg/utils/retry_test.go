package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalyx/termsgate/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errTemporary = errors.New("temporary error")

func fastOptions(maxRetries uint64) utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      maxRetries,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		failures      int
		maxRetries    uint64
		expectedCalls int
		expectedErr   error
	}{
		{
			name:          "succeeds first try",
			failures:      0,
			maxRetries:    3,
			expectedCalls: 1,
		},
		{
			name:          "succeeds after retries",
			failures:      2,
			maxRetries:    3,
			expectedCalls: 3,
		},
		{
			name:          "fails all retries",
			failures:      10,
			maxRetries:    3,
			expectedCalls: 4, // Initial + 3 retries
			expectedErr:   errTemporary,
		},
		{
			name:          "no retries",
			failures:      10,
			maxRetries:    0,
			expectedCalls: 1,
			expectedErr:   errTemporary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.WarnLevel)
			calls := 0

			result, err := utils.WithRetry(t.Context(), func() (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errTemporary
				}
				return "ok", nil
			}, fastOptions(tt.maxRetries), zap.New(core))

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
			}

			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, min(tt.failures, int(tt.maxRetries)), logs.Len())
		})
	}
}

func TestWithRetryContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	calls := 0

	opts := utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxRetries:      5,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := utils.WithRetry(ctx, func() (int, error) {
		calls++
		return 0, errTemporary
	}, opts, nil)

	require.Error(t, err)
	assert.Less(t, calls, 5)
}

func TestGetStartupRetryOptions(t *testing.T) {
	t.Parallel()

	opts := utils.GetStartupRetryOptions(4)
	assert.Equal(t, uint64(4), opts.MaxRetries)
	assert.LessOrEqual(t, opts.InitialInterval, opts.MaxInterval)
}
