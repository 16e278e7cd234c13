// Package registry tracks purged subject references so a purge stays
// absorbing across batches and restarts even when the erased record itself
// carries no history.
package registry

import (
	"context"
	"sync"
	"time"
)

// Registry is keyed by subject reference hashes, never raw identities. TTL
// bounds how long the marker outlives the statutory retention window.
type Registry interface {
	MarkPurged(ctx context.Context, subjectRef string, ttl time.Duration) error
	IsPurged(ctx context.Context, subjectRef string) (bool, error)
}

// InMemoryRegistry is the single-process implementation for tests and
// deployments without Redis. Expiry is checked lazily on read.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	expires map[string]time.Time
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{expires: make(map[string]time.Time)}
}

func (r *InMemoryRegistry) MarkPurged(_ context.Context, subjectRef string, ttl time.Duration) error {
	if subjectRef == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expires[subjectRef] = time.Now().Add(ttl)
	return nil
}

func (r *InMemoryRegistry) IsPurged(_ context.Context, subjectRef string) (bool, error) {
	if subjectRef == "" {
		return false, nil
	}
	r.mu.RLock()
	deadline, ok := r.expires[subjectRef]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		r.mu.Lock()
		delete(r.expires, subjectRef)
		r.mu.Unlock()
		return false, nil
	}
	return true, nil
}
