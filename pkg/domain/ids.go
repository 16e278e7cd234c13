package domain

import "github.com/google/uuid"

// Typed IDs prevent accidental cross-assignment between identifier kinds.
// Construct via the New* helpers; zero values are detectable with IsNil.

// RecordID identifies a single canonical record through the pipeline.
type RecordID uuid.UUID

// RequestID identifies one audit append. Every disposition-affecting event
// gets a fresh one; uniqueness is what makes the audit trail verifiable.
type RequestID uuid.UUID

func NewRecordID() RecordID {
	return RecordID(uuid.New())
}

func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

func (r RecordID) String() string { return uuid.UUID(r).String() }

func (r RecordID) IsNil() bool { return uuid.UUID(r) == uuid.Nil }

func (r RequestID) String() string { return uuid.UUID(r).String() }

func (r RequestID) IsNil() bool { return uuid.UUID(r) == uuid.Nil }

// ParseRecordID constructs a RecordID from stored input.
func ParseRecordID(s string) (RecordID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(u), nil
}

// ParseRequestID constructs a RequestID from external input, e.g. when
// replaying audit entries from storage.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}
