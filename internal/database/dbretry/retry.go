package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun/driver/pgdriver"
)

//nolint:gochecknoglobals // tuned in tests
var (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// retryableClasses are SQLSTATE classes that describe transient conditions:
// connection exceptions, transaction rollbacks, insufficient resources and
// operator intervention.
var retryableClasses = []string{"08", "40", "53", "57"} //nolint:gochecknoglobals // -

// retryableCodes are individual codes outside those classes worth retrying.
var retryableCodes = map[string]struct{}{ //nolint:gochecknoglobals // -
	"55006": {}, // object_in_use
	"55P03": {}, // lock_not_available
}

// networkMessages match driver errors that carry no SQLSTATE.
var networkMessages = []string{ //nolint:gochecknoglobals // -
	"connection reset by peer",
	"broken pipe",
	"connection refused",
	"no connection",
	"i/o timeout",
	"EOF",
}

// IsRetryableError checks if the given error is worth another attempt.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		return isRetryableCode(pgerr.Field('C'))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	for _, msg := range networkMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}

func isRetryableCode(code string) bool {
	if _, ok := retryableCodes[code]; ok {
		return true
	}

	for _, class := range retryableClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}

	return false
}

func newBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries), ctx)
}

// Operation wraps a database operation with retry logic.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	err := backoff.Retry(func() error {
		var err error

		result, err = operation(ctx)
		if err != nil {
			if !IsRetryableError(err) {
				return backoff.Permanent(fmt.Errorf("non-retryable error: %w", err))
			}

			lastErr = err

			return err
		}

		return nil
	}, newBackOff(ctx))
	if err != nil {
		if lastErr != nil {
			return result, fmt.Errorf("database operation failed after retries: %w", lastErr)
		}

		return result, fmt.Errorf("database operation failed: %w", err)
	}

	return result, nil
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})

	return err
}
