package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keySessionID contextKey = "session_id"
	keyRound     contextKey = "round"
	keyAgent     contextKey = "agent"
)

// WithSessionID adds the group chat session ID to context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, keySessionID, sessionID)
}

// SessionID extracts the session ID from context.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionID).(string)
	return v, ok && v != ""
}

// WithRound adds the current round index to context.
func WithRound(ctx context.Context, round int) context.Context {
	return context.WithValue(ctx, keyRound, round)
}

// Round extracts the current round index from context.
func Round(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(keyRound).(int)
	return v, ok && v > 0
}

// WithAgent adds the active speaker's name to context.
func WithAgent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyAgent, name)
}

// Agent extracts the active speaker's name from context.
func Agent(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyAgent).(string)
	return v, ok && v != ""
}
