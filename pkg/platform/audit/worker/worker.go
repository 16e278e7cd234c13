package worker

import (
	"context"

	audit "omnigest/pkg/platform/audit"
)

// Worker is the single-writer lane in front of the audit store. Concurrent
// pipeline workers submit entries here; appends are serialized and each
// submitter blocks until its entry is confirmed durable, so a purge is
// never reported successful ahead of its audit line.
type Worker struct {
	store audit.Store
	inbox chan request
}

type request struct {
	entry audit.Entry
	done  chan error
}

// New builds a worker with a bounded inbox. The buffer only smooths bursts;
// confirmation semantics do not depend on it.
func New(store audit.Store, buffer int) *Worker {
	if buffer < 0 {
		buffer = 0
	}
	return &Worker{store: store, inbox: make(chan request, buffer)}
}

// Run consumes submissions until ctx is cancelled. On cancellation it
// drains everything already queued before returning, so an in-flight purge
// is never left with an unconfirmed audit write.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case req := <-w.inbox:
			req.done <- w.store.Append(ctx, req.entry)
		case <-ctx.Done():
			w.drain(ctx)
			return ctx.Err()
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	// Queued appends still complete; the store call must not be cut short
	// by the cancellation that is shutting us down.
	detached := context.WithoutCancel(ctx)
	for {
		select {
		case req := <-w.inbox:
			req.done <- w.store.Append(detached, req.entry)
		default:
			return
		}
	}
}

// Append submits one entry and blocks until the store confirms it. An error
// (including ctx cancellation before confirmation) means the caller must
// treat the entry as not appended.
func (w *Worker) Append(ctx context.Context, entry audit.Entry) error {
	req := request{entry: entry, done: make(chan error, 1)}
	select {
	case w.inbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
