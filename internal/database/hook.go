package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Hook implements bun.QueryHook and reports every query to zap.
type Hook struct {
	logger *zap.Logger
}

// NewHook creates a new Hook writing to the given logger.
func NewHook(logger *zap.Logger) *Hook {
	return &Hook{logger: logger.Named("query")}
}

// BeforeQuery is a no-op; timing comes from the event itself.
func (h *Hook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery logs the query, its operation and how long it took.
func (h *Hook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	fields := []zap.Field{
		zap.String("operation", event.Operation()),
		zap.String("query", event.Query),
		zap.Duration("duration", time.Since(event.StartTime)),
	}

	if event.Err != nil {
		h.logger.Error("Query failed", append(fields, zap.Error(event.Err))...)
		return
	}

	h.logger.Debug("Query executed", fields...)
}
