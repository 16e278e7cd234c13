package records

import (
	"context"
	"sync"

	"omnigest/internal/schema"
	"omnigest/pkg/domain"
)

// InMemoryStore keeps records in a map for tests and storage-less runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	recs map[domain.RecordID]schema.CanonicalRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{recs: make(map[domain.RecordID]schema.CanonicalRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, rec *schema.CanonicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]schema.CanonicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.CanonicalRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) HardDeletePurged(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.recs {
		if rec.Disposition == domain.DispositionPurged {
			delete(s.recs, id)
			n++
		}
	}
	return n, nil
}
