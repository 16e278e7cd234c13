package compliance

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// NoticeReference is a parsed versioned consent-notice identifier,
// N-<year>-<type>-v<major>.<minor>.
type NoticeReference struct {
	Year  int
	Type  string
	Major int
	Minor int
}

// Grammar is strict: sub-versioning is mandatory and anything not matching
// exactly is invalid, never silently accepted. Legacy simple IDs like
// N-2025-XYZ or N-26-XYZ-v1 must fail.
var noticeIDPattern = regexp.MustCompile(`^N-(\d{4})-([A-Z0-9]{2,4})-v(\d+)\.(\d+)$`)

// ParseNoticeID validates a notice identifier against the versioned grammar.
func ParseNoticeID(s string) (NoticeReference, error) {
	m := noticeIDPattern.FindStringSubmatch(s)
	if m == nil {
		return NoticeReference{}, fmt.Errorf("notice id %q does not match versioned grammar", s)
	}
	year, _ := strconv.Atoi(m[1])
	major, _ := strconv.Atoi(m[3])
	minor, _ := strconv.Atoi(m[4])
	return NoticeReference{Year: year, Type: m[2], Major: major, Minor: minor}, nil
}

func (n NoticeReference) String() string {
	return fmt.Sprintf("N-%04d-%s-v%d.%d", n.Year, n.Type, n.Major, n.Minor)
}

// noticeDateLayouts are tried in order; source systems emit plain ISO dates
// most of the time but full timestamps show up in JSON exports.
var noticeDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseNoticeDate parses a notice issuance date. An unparseable date is not
// an error condition for the pipeline; callers treat (time.Time{}, false)
// as "no expiry signal".
func ParseNoticeDate(s string) (time.Time, bool) {
	for _, layout := range noticeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
