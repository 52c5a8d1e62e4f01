package logging

import (
	"context"
	"log/slog"

	"bugsort/internal/services"
)

// Field keys shared by every component.
const (
	FieldComponent     = "component"
	FieldItemID        = "item_id"
	FieldStage         = "stage"
	FieldRunID         = "run_id"
	FieldClusterID     = "cluster_id"
	FieldCorrelationID = "correlation_id" // review request ID
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint" // next step for an operator
	FieldImpact        = "impact"     // consequence of a warning
)

// ContextFields returns the run, item, stage and request IDs carried by ctx.
func ContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var args []any
	lookups := []struct {
		key string
		get func(context.Context) (string, bool)
	}{
		{FieldRunID, services.RunIDFromContext},
		{FieldItemID, services.ItemIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	}
	for _, l := range lookups {
		if v, ok := l.get(ctx); ok {
			args = append(args, slog.String(l.key, v))
		}
	}
	return args
}

// WithContext returns logger tagged with the IDs carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if args := ContextFields(ctx); len(args) > 0 {
		return logger.With(args...)
	}
	return logger
}
