package compliance

import (
	"time"

	"omnigest/internal/schema"
	"omnigest/pkg/domain"
)

// Evaluate classifies one canonicalized record against a reference "now".
// This is pure domain logic - no I/O, no side effects; executing a purge is
// the pipeline's job and happens before the disposition is considered
// final.
//
// Rule priority (first match wins):
//  0. Purge sentinels present - PURGED is absorbing, re-derive it
//  1. Consent revoked - hard purge, compliance-critical
//  2. Notice expired or notice id invalid - retention rules
//  3. Declared purpose outside the allow-list
//  4. Identity field absent or malformed after rescue - quarantine
//  5. Otherwise processed
func Evaluate(rec *schema.CanonicalRecord, now time.Time, policy Policy) Outcome {
	// Rule 0: a record that already bears purge sentinels must never be
	// re-processed or re-quarantined.
	if rec.Purged() {
		return Outcome{Disposition: domain.DispositionPurged, Reason: ReasonAlreadyPurged}
	}

	// Rule 1: consent revocation.
	if rec.ConsentStatus() == domain.ConsentRevoked {
		return Outcome{Disposition: domain.DispositionPurged, Reason: ReasonConsentRevoked}
	}

	// Rule 2: notice retention and grammar.
	if expired(rec, now, policy) {
		return Outcome{Disposition: domain.DispositionPurged, Reason: ReasonNoticeExpired}
	}
	if !noticeValid(rec, policy) {
		return Outcome{Disposition: domain.DispositionPurged, Reason: ReasonNoticeInvalid}
	}

	// Rule 3: purpose limitation.
	if !policy.purposeAuthorized(rec.Value(schema.KeyDataPurpose)) {
		return Outcome{Disposition: domain.DispositionPurged, Reason: ReasonUnauthorizedPurpose}
	}

	// Rule 4: identity presence. Recovery has already had its chance.
	if !rec.Present(schema.KeyABHAID) {
		return Outcome{
			Disposition:   domain.DispositionQuarantined,
			Reason:        ReasonMissingABHA,
			MissingFields: missingIdentityFields(rec),
		}
	}
	if !domain.IsWellFormedABHA(rec.Value(schema.KeyABHAID)) {
		return Outcome{
			Disposition:   domain.DispositionQuarantined,
			Reason:        ReasonMalformedID,
			MissingFields: missingIdentityFields(rec),
		}
	}

	return Outcome{Disposition: domain.DispositionProcessed, Reason: ReasonNone}
}

// expired reports whether the notice date is older than the retention
// threshold. An absent or unparseable date carries no expiry signal.
func expired(rec *schema.CanonicalRecord, now time.Time, policy Policy) bool {
	if !rec.Present(schema.KeyNoticeDate) {
		return false
	}
	issued, ok := ParseNoticeDate(rec.Value(schema.KeyNoticeDate))
	if !ok {
		return false
	}
	return issued.Before(now.Add(-policy.RetentionWindow()))
}

// noticeValid checks the versioned grammar and the legacy-year cutoff.
// Absent notice IDs are invalid: an unidentified notice is never silently
// accepted.
func noticeValid(rec *schema.CanonicalRecord, policy Policy) bool {
	if !rec.Present(schema.KeyNoticeID) {
		return false
	}
	ref, err := ParseNoticeID(rec.Value(schema.KeyNoticeID))
	if err != nil {
		return false
	}
	return ref.Year >= policy.MinNoticeYear
}

func missingIdentityFields(rec *schema.CanonicalRecord) []string {
	var missing []string
	for _, key := range schema.RequiredIdentityKeys {
		if !rec.Present(key) {
			missing = append(missing, string(key))
		}
	}
	return missing
}
