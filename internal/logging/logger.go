// Package logging defines the structured-logging interface the server and
// client share. The concrete implementation wraps slog, but nothing outside
// this package depends on that.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// alternating key/value pairs:
//
//	log.Info(ctx, "session opened", "remote", addr, "sessions", n)
type Logger interface {
	// Debug logs fine-grained events, such as per-message dispatch.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs normal lifecycle events.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions, such as a rejected login.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key/value
	// pairs. The server uses this to stamp connection logs with the remote
	// address.
	With(args ...any) Logger
}
