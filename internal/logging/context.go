package logging

import (
	"context"
	"log/slog"

	"closetpicks/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for the reconciliation or enrichment run id.
	FieldRunID = "run_id"
	// FieldShard is the standardized key for the enrichment worker shard.
	FieldShard = "shard"
	// FieldGuest is the standardized key for guest slugs.
	FieldGuest = "guest"
	// FieldPass is the standardized key for reconciliation pass names.
	FieldPass = "pass"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to look at next.
	FieldErrorHint = "error_hint"
	// FieldDecisionType names the kind of automated decision being logged.
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if shard, ok := services.ShardFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldShard, shard))
	}
	if guest, ok := services.GuestFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldGuest, guest))
	}
	if pass, ok := services.PassFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPass, pass))
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
