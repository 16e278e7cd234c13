package domain

import "strings"

// ConsentStatus is the state of a Data Principal's consent as declared on
// the record. It drives the first compliance rule: REVOKED triggers purge.
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "ACTIVE"
	ConsentRevoked ConsentStatus = "REVOKED"
	ConsentExpired ConsentStatus = "EXPIRED"
	ConsentUnknown ConsentStatus = "UNKNOWN"
)

// ParseConsentStatus normalizes free-form source values to the closed set.
// Source systems write GRANTED and ACTIVE interchangeably, so both map to
// ACTIVE. Anything unrecognized degrades to UNKNOWN rather than an error:
// a typo'd status must never silently pass for ACTIVE, and must never crash
// ingestion either.
func ParseConsentStatus(s string) ConsentStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE", "GRANTED":
		return ConsentActive
	case "REVOKED":
		return ConsentRevoked
	case "EXPIRED":
		return ConsentExpired
	default:
		return ConsentUnknown
	}
}

func (c ConsentStatus) String() string {
	return string(c)
}
