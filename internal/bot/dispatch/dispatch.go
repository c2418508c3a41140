// Package dispatch runs platform event handlers on a bounded worker pool.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Dispatcher runs one handler per event with at most a fixed number running
// at a time. Dispatch blocks while the pool is full.
type Dispatcher struct {
	pool   *pool.Pool
	logger *zap.Logger
}

// New creates a Dispatcher running at most workers handlers at once.
func New(workers int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		pool:   pool.New().WithMaxGoroutines(max(workers, 1)),
		logger: logger.Named("dispatch"),
	}
}

// Dispatch schedules fn under a fresh event id. The handler keeps the values of ctx but not its
// cancellation, so in-flight work can finish replying during shutdown.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, fn func(ctx context.Context)) {
	handlerCtx := context.WithoutCancel(ctx)
	eventID := uuid.NewString()

	d.pool.Go(func() {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Panic in event handler",
					zap.String("handler", name),
					zap.String("eventID", eventID),
					zap.Any("panic", r),
					zap.Stack("stack"))
			}

			d.logger.Debug("Event handled",
				zap.String("handler", name),
				zap.String("eventID", eventID),
				zap.Duration("duration", time.Since(start)))
		}()

		fn(handlerCtx)
	})
}

// Wait blocks until every dispatched handler has returned.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}
