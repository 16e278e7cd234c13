package compliance

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type NoticeSuite struct {
	suite.Suite
}

func TestNoticeSuite(t *testing.T) {
	suite.Run(t, new(NoticeSuite))
}

func (s *NoticeSuite) TestGrammarStrictness() {
	s.Run("valid versioned identifiers parse", func() {
		tests := []struct {
			in    string
			year  int
			typ   string
			major int
			minor int
		}{
			{"N-2026-XYZ-v1.1", 2026, "XYZ", 1, 1},
			{"N-2026-A1-v1.0", 2026, "A1", 1, 0},
			{"N-2027-CARD-v2.0", 2027, "CARD", 2, 0},
			{"N-2026-XYZ-v10.25", 2026, "XYZ", 10, 25},
		}
		for _, tt := range tests {
			ref, err := ParseNoticeID(tt.in)
			s.Require().NoError(err, "input %q", tt.in)
			s.Equal(tt.year, ref.Year)
			s.Equal(tt.typ, ref.Type)
			s.Equal(tt.major, ref.Major)
			s.Equal(tt.minor, ref.Minor)
		}
	})

	s.Run("anything not matching exactly fails", func() {
		invalid := []string{
			"N-2026-XYZ",      // no sub-version
			"N-26-XYZ-v1",     // short year, no minor
			"2026-XYZ-v1.1",   // missing N prefix
			"N-2026-XYZ-v1",   // no minor version
			"N-2026-xyz-v1.1", // lowercase type
			"N-2026-TOOLONG-v1.1",
			"N-2026-X-v1.1",    // type too short
			"N-2026-XYZ-v1.1 ", // trailing space
			" N-2026-XYZ-v1.1",
			"N-2026-XYZ-v1.1.2",
			"",
		}
		for _, in := range invalid {
			_, err := ParseNoticeID(in)
			s.Error(err, "input %q should fail", in)
		}
	})

	s.Run("round trips through String", func() {
		ref, err := ParseNoticeID("N-2026-XYZ-v1.1")
		s.Require().NoError(err)
		s.Equal("N-2026-XYZ-v1.1", ref.String())
	})
}

func (s *NoticeSuite) TestParseNoticeDate() {
	s.Run("iso date accepted", func() {
		t, ok := ParseNoticeDate("2026-01-15")
		s.True(ok)
		s.Equal(2026, t.Year())
	})

	s.Run("rfc3339 timestamp accepted", func() {
		_, ok := ParseNoticeDate("2026-01-15T10:30:00Z")
		s.True(ok)
	})

	s.Run("garbage degrades to no signal", func() {
		for _, in := range []string{"", "yesterday", "15/01/2026", "\x00\x01"} {
			_, ok := ParseNoticeDate(in)
			s.False(ok, "input %q", in)
		}
	})
}

// FuzzParseNoticeID pins two properties: the parser never panics on
// arbitrary input, and accepted identifiers always round-trip through
// String back to an accepted identifier.
func FuzzParseNoticeID(f *testing.F) {
	f.Add("N-2026-XYZ-v1.1")
	f.Add("N-2026-A1-v1.0")
	f.Add("N-26-XYZ-v1")
	f.Add("2026-XYZ-v1.1")
	f.Add("")
	f.Add("N-9999-ZZZZ-v999.999")

	f.Fuzz(func(t *testing.T, in string) {
		ref, err := ParseNoticeID(in)
		if err != nil {
			return
		}
		if _, err := ParseNoticeID(ref.String()); err != nil {
			t.Fatalf("accepted %q but round-trip %q failed", in, ref.String())
		}
	})
}
