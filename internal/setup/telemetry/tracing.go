package telemetry

import (
	"context"

	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// ShutdownFunc flushes and stops span export.
type ShutdownFunc func(ctx context.Context) error

// ConfigureTracing exports spans to Uptrace when a DSN is configured.
// Without one, spans stay with the no-op global provider.
func ConfigureTracing(cfg *config.Telemetry, version string, logger *zap.Logger) ShutdownFunc {
	if cfg.UptraceDSN == "" {
		logger.Debug("Tracing export disabled")
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(version),
	)

	logger.Info("Tracing export enabled", zap.String("service", cfg.ServiceName))

	return uptrace.Shutdown
}
