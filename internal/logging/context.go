package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldClient is the standardized structured logging key for client schemas.
	FieldClient = "client"
	// FieldBatch is the standardized structured logging key for batch identifiers.
	FieldBatch = "batch_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldMode is the standardized structured logging key for orchestration modes.
	FieldMode = "mode"
	// FieldFile is the standardized structured logging key for physical file names.
	FieldFile = "file"
	// FieldEventType tags log records with a machine-readable event class.
	FieldEventType = "event_type"
)

type contextKey int

const (
	clientKey contextKey = iota
	batchKey
	stageKey
)

// WithClient stores the client schema on the context for downstream loggers.
func WithClient(ctx context.Context, clientSchema string) context.Context {
	return context.WithValue(ctx, clientKey, clientSchema)
}

// WithBatch stores the batch id on the context for downstream loggers.
func WithBatch(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchKey, batchID)
}

// WithStage stores the pipeline stage name on the context for downstream loggers.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if v, ok := ctx.Value(clientKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldClient, v))
	}
	if v, ok := ctx.Value(batchKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldBatch, v))
	}
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldStage, v))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
