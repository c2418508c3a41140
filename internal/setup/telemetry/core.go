package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// TracerName is the instrumentation name of spans created from log entries.
const TracerName = "github.com/robalyx/termsgate/logs"

// Core implements zapcore.Core to forward error logs to OpenTelemetry.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a core that forwards entries to the global tracer provider.
func NewCore(enab zapcore.LevelEnabler) zapcore.Core {
	return NewCoreWithProvider(enab, otel.GetTracerProvider())
}

// NewCoreWithProvider creates a core that forwards entries to the given provider.
func NewCoreWithProvider(enab zapcore.LevelEnabler, tp trace.TracerProvider) zapcore.Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       tp.Tracer(TracerName),
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)

	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	// Only forward Error and higher severity
	if ent.Level < zapcore.ErrorLevel {
		return nil
	}

	_, span := c.tracer.Start(context.Background(), "error."+getErrorCategory(ent))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("error.message", ent.Message),
		attribute.String("error.level", ent.Level.String()),
		attribute.String("error.caller", ent.Caller.String()),
	}

	if ent.LoggerName != "" {
		attrs = append(attrs, attribute.String("logger", ent.LoggerName))
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}

	for _, field := range fields {
		field.AddTo(enc)
	}

	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, fmt.Sprint(value)))
	}

	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, ent.Message)

	return nil
}

func (c *Core) Sync() error {
	return nil
}

// getErrorCategory determines the error category based on the log entry.
func getErrorCategory(ent zapcore.Entry) string {
	source := ent.LoggerName + " " + ent.Caller.Function

	switch {
	case strings.Contains(source, "database"):
		return "database"
	case strings.Contains(source, "redis"), strings.Contains(source, "consent"):
		return "store"
	case strings.Contains(source, "decisionlog"):
		return "decision_log"
	case strings.Contains(source, "proof"):
		return "proof"
	case strings.Contains(source, "telegram"), strings.Contains(source, "discord"):
		return "transport"
	case strings.Contains(source, "gate"), strings.Contains(source, "bot"):
		return "bot"
	case strings.Contains(source, "setup"):
		return "setup"
	default:
		return "application"
	}
}
