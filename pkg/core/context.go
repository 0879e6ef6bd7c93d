package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type sessionIDKey struct{}

// WithSessionID attaches a session id to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionID returns the session id if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}

// EnsureSessionID ensures a session id exists in the context.
func EnsureSessionID(ctx context.Context) (context.Context, string) {
	if id, ok := SessionID(ctx); ok {
		return ctx, id
	}
	id := NewSessionID()
	return WithSessionID(ctx, id), id
}

// NewSessionID generates a fresh session id.
func NewSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "sess-unknown"
	}
	return "sess-" + hex.EncodeToString(buf)
}
