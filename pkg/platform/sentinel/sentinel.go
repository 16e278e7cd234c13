package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so callers can translate them with errors.Is.
//
// These represent factual states about resources, not record-level data
// problems. A missing or malformed field in a record is never an error
// here: the pipeline absorbs those into dispositions. The only record-fatal
// condition is a failed audit append, because erasure must stay provable.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")

	// ErrAuditWrite marks a purge whose audit entry could not be appended.
	// The record's disposition must not be finalized while this stands.
	ErrAuditWrite = errors.New("audit append failed")
)
