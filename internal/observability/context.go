package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	runModeKey   contextKey = "run_mode"
	topicKey     contextKey = "topic"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithRunMode adds the scout run mode to the context.
func WithRunMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, runModeKey, mode)
}

// RunModeFromContext retrieves the scout run mode from context.
// Returns empty string if not present.
func RunModeFromContext(ctx context.Context) string {
	if v := ctx.Value(runModeKey); v != nil {
		if mode, ok := v.(string); ok {
			return mode
		}
	}
	return ""
}

// WithTopic adds the scouting topic to the context.
func WithTopic(ctx context.Context, topic string) context.Context {
	return context.WithValue(ctx, topicKey, topic)
}

// TopicFromContext retrieves the scouting topic from context.
// Returns empty string if not present.
func TopicFromContext(ctx context.Context) string {
	if v := ctx.Value(topicKey); v != nil {
		if topic, ok := v.(string); ok {
			return topic
		}
	}
	return ""
}
