package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "omnigest/pkg/platform/audit"
)

// Append-only semantics and newest-first listing protect the audit lineage
// guarantees the pipeline builds on.
type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) entry(action audit.Action, at time.Time) audit.Entry {
	return audit.NewEntry(at, action, "a1b2c3d4****", "CONSENT_REVOKED", 365*24*time.Hour)
}

func (s *InMemoryStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first := s.entry(audit.ActionConsentRevokedOverride, base)
	second := s.entry(audit.ActionCompliancePurgeSuccess, base.Add(time.Minute))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	s.Run("newest first", func() {
		got, err := s.store.List(ctx, 0)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(second.RequestID, got[0].RequestID)
		s.Equal(first.RequestID, got[1].RequestID)
	})

	s.Run("limit respected", func() {
		got, err := s.store.List(ctx, 1)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(second.RequestID, got[0].RequestID)
	})

	s.Run("unique request ids", func() {
		s.NotEqual(first.RequestID, second.RequestID)
	})

	s.Run("retention horizon stamped", func() {
		s.Equal(base.Add(365*24*time.Hour), first.StatutoryRetentionUntil)
	})
}

func (s *InMemoryStoreSuite) TestListCopiesAreIsolated() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.entry(audit.ActionRecordQuarantined, time.Now())))

	got, err := s.store.List(ctx, 0)
	s.Require().NoError(err)
	got[0].SubjectReference = "tampered"

	again, err := s.store.List(ctx, 0)
	s.Require().NoError(err)
	s.Equal("a1b2c3d4****", again[0].SubjectReference)
}
