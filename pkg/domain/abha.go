package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ABHAID is a national health account identifier in the fixed format
// XX-XXXX-XXXX-XXXX (two digits, then three four-digit groups).
//
// Usage: construct via ParseABHAID; the recovery recognizers depend on this
// being strict so a partial match never counts as a rescue.
type ABHAID string

var abhaPattern = regexp.MustCompile(`^\d{2}-\d{4}-\d{4}-\d{4}$`)

// ParseABHAID validates the exact 14-digit hyphenated format.
func ParseABHAID(s string) (ABHAID, error) {
	if !abhaPattern.MatchString(s) {
		return "", fmt.Errorf("malformed ABHA identifier")
	}
	return ABHAID(s), nil
}

// NormalizeABHAID maps space-separated digit groups to the hyphenated form
// before validating. Scanned free text often carries "91 1234 5678 9012".
func NormalizeABHAID(s string) (ABHAID, error) {
	return ParseABHAID(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}

// IsWellFormedABHA reports whether the value already satisfies the format.
func IsWellFormedABHA(s string) bool {
	return abhaPattern.MatchString(s)
}

func (a ABHAID) String() string {
	return string(a)
}
