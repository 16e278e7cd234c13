package purge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"omnigest/internal/compliance"
	"omnigest/internal/schema"
	audit "omnigest/pkg/platform/audit"
	"omnigest/pkg/platform/audit/store/memory"
	"omnigest/pkg/platform/sentinel"
)

type PurgeSuite struct {
	suite.Suite
	store *memory.InMemoryStore
	svc   *Service
	now   time.Time
}

func (s *PurgeSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.svc = NewService(s.store, compliance.DefaultPolicy(), nil)
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestPurgeSuite(t *testing.T) {
	suite.Run(t, new(PurgeSuite))
}

func record() *schema.CanonicalRecord {
	rec := schema.NewCanonicalRecord()
	rec.Set(schema.KeyABHAID, "91-1234-5678-9012")
	rec.Set(schema.KeyPatientName, "Asha Rao")
	rec.Set(schema.KeyClinicalPayload, "BP 120/80, prescribed amlodipine")
	return &rec
}

func (s *PurgeSuite) TestApplyErasesAndAudits() {
	rec := record()
	s.Require().NoError(s.svc.Apply(context.Background(), rec, compliance.ReasonConsentRevoked, s.now))

	s.Run("sentinels overwrite identity", func() {
		s.Equal(schema.SentinelRedacted, rec.Value(schema.KeyABHAID))
		s.Equal(schema.SentinelRedacted, rec.Value(schema.KeyPatientName))
		s.Equal(schema.SentinelPurgedPayload, rec.Value(schema.KeyClinicalPayload))
		s.True(rec.Purged())
	})

	s.Run("audit entry is pii free", func() {
		entries, err := s.store.List(context.Background(), 0)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		e := entries[0]
		s.Equal(audit.ActionConsentRevokedOverride, e.Action)
		s.Equal("CONSENT_REVOKED", e.Reason)
		s.NotContains(e.SubjectReference, "91-1234-5678-9012")
		s.NotContains(e.SubjectReference, "Asha")
		s.Regexp(`^[0-9a-f]{8}\*\*\*\*$`, e.SubjectReference)
		s.Equal(s.now.Add(365*24*time.Hour), e.StatutoryRetentionUntil)
	})
}

func (s *PurgeSuite) TestComplianceReasonsUsePurgeSuccessAction() {
	for _, reason := range []compliance.Reason{
		compliance.ReasonNoticeExpired,
		compliance.ReasonNoticeInvalid,
		compliance.ReasonUnauthorizedPurpose,
	} {
		s.Run(string(reason), func() {
			store := memory.NewInMemoryStore()
			svc := NewService(store, compliance.DefaultPolicy(), nil)
			s.Require().NoError(svc.Apply(context.Background(), record(), reason, s.now))

			entries, err := store.List(context.Background(), 0)
			s.Require().NoError(err)
			s.Require().Len(entries, 1)
			s.Equal(audit.ActionCompliancePurgeSuccess, entries[0].Action)
			s.Equal(string(reason), entries[0].Reason)
		})
	}
}

func (s *PurgeSuite) TestApplyIsIdempotent() {
	rec := record()
	s.Require().NoError(s.svc.Apply(context.Background(), rec, compliance.ReasonConsentRevoked, s.now))
	s.Require().NoError(s.svc.Apply(context.Background(), rec, compliance.ReasonConsentRevoked, s.now))

	s.Equal(1, s.store.Len())
	s.Equal(schema.SentinelRedacted, rec.Value(schema.KeyABHAID))
}

func (s *PurgeSuite) TestAuditFailureWithholdsErasure() {
	svc := NewService(failingAppender{}, compliance.DefaultPolicy(), nil)
	rec := record()

	err := svc.Apply(context.Background(), rec, compliance.ReasonConsentRevoked, s.now)
	s.ErrorIs(err, sentinel.ErrAuditWrite)
	s.Equal("91-1234-5678-9012", rec.Value(schema.KeyABHAID))
	s.False(rec.Purged())
}

func (s *PurgeSuite) TestSubjectReference() {
	s.Run("deterministic", func() {
		s.Equal(SubjectReference("91-1234-5678-9012"), SubjectReference("91-1234-5678-9012"))
	})
	s.Run("masked tail", func() {
		s.Regexp(`^[0-9a-f]{8}\*\*\*\*$`, SubjectReference("91-1234-5678-9012"))
	})
	s.Run("empty collapses to mask", func() {
		s.Equal("****", SubjectReference(""))
	})
	s.Run("redacted collapses to mask", func() {
		s.Equal("****", SubjectReference(schema.SentinelRedacted))
	})
	s.Run("distinct subjects diverge", func() {
		s.NotEqual(SubjectReference("91-1234-5678-9012"), SubjectReference("12-9876-5432-1098"))
	})
}

func (s *PurgeSuite) TestRecordSubjectReference() {
	s.Run("abha wins when present", func() {
		rec := record()
		s.Equal(SubjectReference("91-1234-5678-9012"), RecordSubjectReference(rec))
	})

	s.Run("falls back to name without abha", func() {
		rec := schema.NewCanonicalRecord()
		rec.Set(schema.KeyPatientName, "Asha Rao")
		s.Equal(SubjectReference("Asha Rao"), RecordSubjectReference(&rec))
	})

	s.Run("bare mask when no identity at all", func() {
		rec := schema.NewCanonicalRecord()
		s.Equal("****", RecordSubjectReference(&rec))
	})

	s.Run("matches the audit entry handle", func() {
		rec := record()
		before := RecordSubjectReference(rec)
		s.Require().NoError(s.svc.Apply(context.Background(), rec, compliance.ReasonConsentRevoked, s.now))

		entries, err := s.store.List(context.Background(), 0)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(before, entries[0].SubjectReference)
	})
}

func (s *PurgeSuite) TestPseudonymize() {
	var p Pseudonymizer

	s.Run("stable tokens", func() {
		a, b := record(), record()
		p.Pseudonymize(a)
		p.Pseudonymize(b)
		s.Equal(a.Value(schema.KeyPatientName), b.Value(schema.KeyPatientName))
		s.Regexp(`^Pt_[0-9a-f]{16}$`, a.Value(schema.KeyPatientName))
		s.Regexp(`^ABHA_[0-9a-f]{16}$`, a.Value(schema.KeyABHAID))
	})

	s.Run("secret changes tokens", func() {
		a, b := record(), record()
		Pseudonymizer{}.Pseudonymize(a)
		Pseudonymizer{Secret: []byte("research-key")}.Pseudonymize(b)
		s.NotEqual(a.Value(schema.KeyPatientName), b.Value(schema.KeyPatientName))
	})

	s.Run("redacted fields untouched", func() {
		rec := record()
		rec.Overwrite(schema.KeyPatientName, schema.SentinelRedacted)
		p.Pseudonymize(rec)
		s.Equal(schema.SentinelRedacted, rec.Value(schema.KeyPatientName))
	})

	s.Run("payload untouched", func() {
		rec := record()
		p.Pseudonymize(rec)
		s.Equal("BP 120/80, prescribed amlodipine", rec.Value(schema.KeyClinicalPayload))
	})
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, audit.Entry) error {
	return sentinel.ErrUnavailable
}
