// Package requestcontext provides transport-independent context accessors
// for request-scoped values.
//
// The pipeline evaluates every record against one reference "now" so that a
// whole batch is deterministic: identical (record, now) pairs always yield
// the same disposition. Callers inject that reference time here; services
// and stores read it back without knowing where it came from.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	batchID := requestcontext.BatchID(ctx)
//
// Usage in callers and tests (set values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithBatchID(ctx, batchID)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	batchIDKey     struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyBatchID     = batchIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// BatchID retrieves the ingest-batch correlation ID from the context.
// Returns the empty string if not set.
func BatchID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return id
	}
	return ""
}

// WithBatchID injects an ingest-batch correlation ID into the context.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// Now retrieves the reference evaluation time from context.
// Falls back to time.Now() if not set (workers, CLI, ad hoc callers).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// HasTime reports whether a reference time was injected. Batch drivers use
// this to avoid overwriting a clock a caller already pinned.
func HasTime(ctx context.Context) bool {
	_, ok := ctx.Value(ContextKeyRequestTime).(time.Time)
	return ok
}

// WithTime injects a specific reference time into a context.
// Useful for:
//   - Unit tests that pin the clock
//   - Batch runs that need one consistent "now" across all records
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
