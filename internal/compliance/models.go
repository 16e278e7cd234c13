package compliance

import (
	"time"

	"omnigest/pkg/domain"
)

// Reason explains a disposition for operator follow-up and the audit trail.
type Reason string

const (
	ReasonNone Reason = "N/A"

	// Purge reasons.
	ReasonConsentRevoked      Reason = "CONSENT_REVOKED"
	ReasonNoticeExpired       Reason = "NOTICE_EXPIRED"
	ReasonNoticeInvalid       Reason = "NOTICE_INVALID"
	ReasonUnauthorizedPurpose Reason = "UNAUTHORIZED_PURPOSE"
	ReasonAlreadyPurged       Reason = "ALREADY_PURGED"

	// Quarantine reasons.
	ReasonMissingABHA Reason = "MISSING_ABHA"
	ReasonMalformedID Reason = "MALFORMED_ID"
)

func (r Reason) String() string { return string(r) }

// Outcome is the evaluator's verdict for one record.
type Outcome struct {
	Disposition domain.Disposition
	Reason      Reason

	// MissingFields lists required identity fields still absent after
	// fallback recovery. Populated for quarantines so operators know what
	// to chase.
	MissingFields []string
}

// Policy is the fixed rule configuration an evaluation runs under.
type Policy struct {
	// RetentionDays is the notice validity window; notices issued longer
	// ago than this are expired. Statutory default is one year.
	RetentionDays int

	// MinNoticeYear rejects legacy notice identifiers issued before the
	// current notice regime even when they match the grammar.
	MinNoticeYear int

	// AuthorizedPurposes is the processing-purpose allow-list. An empty
	// or unknown purpose is tolerated; a declared purpose outside the
	// list is not.
	AuthorizedPurposes []string
}

// DefaultPolicy mirrors the statutory defaults.
func DefaultPolicy() Policy {
	return Policy{
		RetentionDays: 365,
		MinNoticeYear: 2026,
		AuthorizedPurposes: []string{
			"Consultation",
			"Treatment",
			"Audit",
			"Emergency Care",
		},
	}
}

// RetentionWindow returns the retention threshold as a duration.
func (p Policy) RetentionWindow() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

func (p Policy) purposeAuthorized(purpose string) bool {
	if purpose == "" || purpose == "UNKNOWN" {
		return true
	}
	for _, allowed := range p.AuthorizedPurposes {
		if purpose == allowed {
			return true
		}
	}
	return false
}
