package domain

import "fmt"

// Disposition is the outcome assigned to a record by the compliance
// evaluator. Invariant: PURGED is absorbing - once a record identity has
// been purged, every later evaluation must re-derive PURGED.
//
// Usage: construct via ParseDisposition at trust boundaries; direct casting
// bypasses validation.
type Disposition string

const (
	// DispositionUnknown is the zero value for records not yet evaluated.
	DispositionUnknown Disposition = ""

	DispositionProcessed   Disposition = "PROCESSED"
	DispositionQuarantined Disposition = "QUARANTINED"
	DispositionPurged      Disposition = "PURGED"
)

// validDispositions is the single source of truth for assignable dispositions.
var validDispositions = map[Disposition]bool{
	DispositionProcessed:   true,
	DispositionQuarantined: true,
	DispositionPurged:      true,
}

// ParseDisposition constructs a Disposition from external input.
//
// Errors: returns an error when the value is empty or unsupported; no other
// errors are expected.
func ParseDisposition(s string) (Disposition, error) {
	d := Disposition(s)
	if !d.IsValid() {
		return DispositionUnknown, fmt.Errorf("invalid disposition: %q", s)
	}
	return d, nil
}

// IsValid checks that the disposition is one of the assignable enum values.
func (d Disposition) IsValid() bool {
	return validDispositions[d]
}

// Terminal reports whether the disposition is absorbing. Only PURGED is:
// quarantined records may be corrected and re-evaluated.
func (d Disposition) Terminal() bool {
	return d == DispositionPurged
}

func (d Disposition) String() string {
	return string(d)
}
