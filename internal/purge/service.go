// Package purge executes DPDP Rule 8 erasure: sentinel overwrite of
// identity fields with a confirmed, PII-free audit line for every purge.
package purge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"omnigest/internal/compliance"
	"omnigest/internal/schema"
	audit "omnigest/pkg/platform/audit"
	"omnigest/pkg/platform/sentinel"
)

// SubjectReference derives the irreversible audit handle for an identity
// value: the first 8 hex characters of its SHA-256 digest plus a fixed mask.
// Empty values and values already redacted map to the bare mask so the
// reference never leaks whether a purge ran once or twice.
func SubjectReference(value string) string {
	if value == "" || value == schema.SentinelRedacted {
		return "****"
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:8] + "****"
}

// RecordSubjectReference derives the subject handle for a whole record,
// falling back to the patient name when no ABHA identifier survived
// mapping. Audit entries and registry markers for one record must both
// come from here so they never diverge.
func RecordSubjectReference(rec *schema.CanonicalRecord) string {
	subject := rec.Value(schema.KeyABHAID)
	if subject == "" {
		subject = rec.Value(schema.KeyPatientName)
	}
	return SubjectReference(subject)
}

// Service applies erasure to canonical records. The audit append is
// confirmed before any field is overwritten, so a purge can never exist
// without its lineage.
type Service struct {
	audit     audit.Appender
	retention time.Duration
	log       *slog.Logger
}

func NewService(appender audit.Appender, policy compliance.Policy, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		audit:     appender,
		retention: policy.RetentionWindow(),
		log:       log,
	}
}

// Apply erases the record's identity fields and clinical payload for the
// given purge reason. It is idempotent: a record that already carries the
// erasure sentinels is left untouched and produces no second audit line.
//
// On audit failure nothing is erased and sentinel.ErrAuditWrite is
// returned; the caller must not stamp the PURGED disposition.
func (s *Service) Apply(ctx context.Context, rec *schema.CanonicalRecord, reason compliance.Reason, now time.Time) error {
	if rec.Purged() {
		return nil
	}

	// The hash must be taken before erasure; afterwards the pre-image is
	// gone everywhere this process can reach.
	subjectRef := RecordSubjectReference(rec)

	entry := audit.NewEntry(now, actionFor(reason), subjectRef, string(reason), s.retention)
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.ErrorContext(ctx, "purge audit append failed, erasure withheld",
			slog.String("subject_reference", subjectRef),
			slog.String("reason", string(reason)),
			slog.Any("error", err))
		return fmt.Errorf("%w: %w", sentinel.ErrAuditWrite, err)
	}

	rec.Overwrite(schema.KeyABHAID, schema.SentinelRedacted)
	rec.Overwrite(schema.KeyPatientName, schema.SentinelRedacted)
	rec.Overwrite(schema.KeyClinicalPayload, schema.SentinelPurgedPayload)

	s.log.InfoContext(ctx, "record purged",
		slog.String("subject_reference", subjectRef),
		slog.String("reason", string(reason)),
		slog.String("request_id", entry.RequestID.String()))
	return nil
}

func actionFor(reason compliance.Reason) audit.Action {
	if reason == compliance.ReasonConsentRevoked {
		return audit.ActionConsentRevokedOverride
	}
	return audit.ActionCompliancePurgeSuccess
}
