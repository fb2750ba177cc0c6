package services

import "context"

type contextKey string

const (
	attemptIDKey contextKey = "attempt_id"
	triggerKey   contextKey = "trigger"
	requestIDKey contextKey = "request_id"
)

// WithAttemptID annotates context with the scan attempt identifier.
func WithAttemptID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, attemptIDKey, id)
}

// AttemptIDFromContext extracts the scan attempt identifier if present.
func AttemptIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(attemptIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTrigger annotates context with the origin of a scan request (api, tui, cli).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	if trigger == "" {
		return ctx
	}
	return context.WithValue(ctx, triggerKey, trigger)
}

// TriggerFromContext returns the scan trigger origin if present.
func TriggerFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(triggerKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
