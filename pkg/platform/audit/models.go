package audit

import (
	"context"
	"time"

	"omnigest/pkg/domain"
)

// Action tags the disposition-affecting event an entry records.
type Action string

const (
	// ActionConsentRevokedOverride marks a purge executed because the Data
	// Principal revoked consent.
	ActionConsentRevokedOverride Action = "CONSENT_REVOKED_OVERRIDE"

	// ActionCompliancePurgeSuccess marks a purge executed for any other
	// compliance reason (expired or invalid notice, unauthorized purpose).
	ActionCompliancePurgeSuccess Action = "COMPLIANCE_PURGE_SUCCESS"

	ActionRecordQuarantined Action = "RECORD_QUARANTINED"
	ActionRecordProcessed   Action = "RECORD_PROCESSED"
)

// Entry is one immutable line of audit lineage. It is created once per
// disposition-affecting event and never mutated or deleted; only the log as
// a whole is retention-expired by an external process.
//
// Invariant: no field ever contains a raw identity value or anything
// reversible to one. SubjectReference is a one-way hash computed before
// erasure; the pre-image is deliberately not retained anywhere the log can
// reach.
type Entry struct {
	RequestID               domain.RequestID
	Timestamp               time.Time
	Action                  Action
	SubjectReference        string
	Reason                  string
	StatutoryRetentionUntil time.Time
}

// NewEntry stamps a fresh unique request ID and the statutory retention
// horizon. subjectRef must already be the one-way hash, never the raw
// identity.
func NewEntry(now time.Time, action Action, subjectRef, reason string, retention time.Duration) Entry {
	return Entry{
		RequestID:               domain.NewRequestID(),
		Timestamp:               now,
		Action:                  action,
		SubjectReference:        subjectRef,
		Reason:                  reason,
		StatutoryRetentionUntil: now.Add(retention),
	}
}

// Appender is the write side of the audit log. The pipeline only needs
// this; the stores and the serializing Worker all satisfy it.
type Appender interface {
	Append(ctx context.Context, entry Entry) error
}

// Store is the append-only audit log contract. Append must be atomic: a
// failed append leaves no partial entry behind.
type Store interface {
	Appender

	// List returns the most recent entries, newest first, up to limit.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// OutboxRow is one audit entry awaiting relay to the external log stream.
// Payload is the serialized entry exactly as it will be published.
type OutboxRow struct {
	RequestID string
	Payload   []byte
}

// Outbox is the contract between an outbox-backed store and the relay that
// drains it.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, requestIDs []string, at time.Time) error
}
