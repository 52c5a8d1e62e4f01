package services

import "context"

type contextKey int

const (
	itemIDKey contextKey = iota
	stageKey
	runIDKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key contextKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithItemID tags ctx with the screenshot item being processed.
func WithItemID(ctx context.Context, id string) context.Context { return withValue(ctx, itemIDKey, id) }

func ItemIDFromContext(ctx context.Context) (string, bool) { return value(ctx, itemIDKey) }

// WithStage tags ctx with a pipeline stage name such as "ocr" or "match".
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return value(ctx, stageKey) }

// WithRunID tags ctx with the pipeline run.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

func RunIDFromContext(ctx context.Context) (string, bool) { return value(ctx, runIDKey) }

// WithRequestID tags ctx with a review request's correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return value(ctx, requestIDKey) }
