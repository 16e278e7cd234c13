package schema

import (
	"omnigest/pkg/domain"
)

// CanonicalKey names a column in the fixed canonical schema. The key set is
// closed: the mapper never invents new keys and unknown source headers are
// dropped, not propagated.
type CanonicalKey string

const (
	KeyABHAID          CanonicalKey = "ABHA_ID"
	KeyPatientName     CanonicalKey = "Patient_Name"
	KeyConsentStatus   CanonicalKey = "Consent_Status"
	KeyNoticeID        CanonicalKey = "Notice_ID"
	KeyNoticeDate      CanonicalKey = "Notice_Date"
	KeyClinicalPayload CanonicalKey = "Clinical_Payload"
	KeyDataPurpose     CanonicalKey = "Data_Purpose"
)

// canonicalKeys is the schema in stable order. Every CanonicalRecord carries
// all of them; absence is an explicit marker, never a missing entry.
var canonicalKeys = []CanonicalKey{
	KeyABHAID,
	KeyPatientName,
	KeyConsentStatus,
	KeyNoticeID,
	KeyNoticeDate,
	KeyClinicalPayload,
	KeyDataPurpose,
}

// RequiredIdentityKeys are the fields the fallback recovery stage must try
// to rescue when mapping leaves them absent.
var RequiredIdentityKeys = []CanonicalKey{KeyABHAID, KeyPatientName}

// Purge sentinels. After erasure the PII-bearing fields hold these values
// and nothing else; the evaluator treats their presence as proof of a prior
// purge so the PURGED disposition stays absorbing.
const (
	SentinelRedacted      = "REDACTED"
	SentinelPurgedPayload = "PURGED_DPDP_RULE_8_ERASURE"
)

// Purged reports whether the record already bears purge sentinels.
func (r *CanonicalRecord) Purged() bool {
	return r.Value(KeyABHAID) == SentinelRedacted ||
		r.Value(KeyPatientName) == SentinelRedacted ||
		r.Value(KeyClinicalPayload) == SentinelPurgedPayload
}

// Keys returns the canonical key set in stable order.
func Keys() []CanonicalKey {
	out := make([]CanonicalKey, len(canonicalKeys))
	copy(out, canonicalKeys)
	return out
}

// RawRecord is one ingested row: source header -> cell text. The ingress
// layer has already flattened whatever format it parsed; values may be
// empty, junk, or binary-looking and the pipeline must cope.
type RawRecord map[string]string

// Field is a canonical cell. Present distinguishes "empty value seen" from
// "nothing mapped"; RecoveredViaFallback records heuristic provenance so
// downstream consumers and audits can tell a rescue from a direct mapping.
type Field struct {
	Value                string
	Present              bool
	RecoveredViaFallback bool
}

// CanonicalRecord is the fixed-schema view of one ingested row. It is
// populated by the mapper, optionally patched by recovery, and mutated again
// only by the purge subsystem (field overwrite on erasure).
type CanonicalRecord struct {
	ID     domain.RecordID
	fields map[CanonicalKey]Field

	// Stamped by the pipeline once evaluation (and, for purges, the audit
	// append) has completed.
	Disposition  domain.Disposition
	StatusReason string
}

// NewCanonicalRecord returns a record with every canonical key explicitly
// absent.
func NewCanonicalRecord() CanonicalRecord {
	fields := make(map[CanonicalKey]Field, len(canonicalKeys))
	for _, k := range canonicalKeys {
		fields[k] = Field{}
	}
	return CanonicalRecord{ID: domain.NewRecordID(), fields: fields}
}

// Clone returns a deep copy. Stores hand copies out so callers can never
// mutate persisted state in place.
func (r *CanonicalRecord) Clone() CanonicalRecord {
	fields := make(map[CanonicalKey]Field, len(r.fields))
	for k, f := range r.fields {
		fields[k] = f
	}
	out := *r
	out.fields = fields
	return out
}

// Get returns the field for a canonical key. Unknown keys read as absent.
func (r *CanonicalRecord) Get(key CanonicalKey) Field {
	return r.fields[key]
}

// Value returns the field value, or "" when absent.
func (r *CanonicalRecord) Value(key CanonicalKey) string {
	return r.fields[key].Value
}

// Present reports whether the key holds a mapped or recovered value.
func (r *CanonicalRecord) Present(key CanonicalKey) bool {
	return r.fields[key].Present
}

// Set stores a directly-mapped value.
func (r *CanonicalRecord) Set(key CanonicalKey, value string) {
	r.fields[key] = Field{Value: value, Present: true}
}

// SetRecovered stores a value rescued by the fallback stage, keeping its
// provenance flag.
func (r *CanonicalRecord) SetRecovered(key CanonicalKey, value string) {
	r.fields[key] = Field{Value: value, Present: true, RecoveredViaFallback: true}
}

// Overwrite replaces a field value in place. Reserved for the purge
// subsystem; provenance is cleared because the original value is gone.
func (r *CanonicalRecord) Overwrite(key CanonicalKey, value string) {
	r.fields[key] = Field{Value: value, Present: true}
}

// ConsentStatus parses the consent field into the closed domain enum.
// An absent field reads as UNKNOWN.
func (r *CanonicalRecord) ConsentStatus() domain.ConsentStatus {
	f := r.fields[KeyConsentStatus]
	if !f.Present {
		return domain.ConsentUnknown
	}
	return domain.ParseConsentStatus(f.Value)
}
