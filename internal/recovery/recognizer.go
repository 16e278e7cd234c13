package recovery

import (
	"regexp"
	"sort"
	"strings"

	"omnigest/internal/schema"
)

// Recognizer is one rescue strategy for a required-but-absent canonical
// field. Attempt returns a candidate value and whether anything was found;
// candidate validation is the service's job so every strategy is held to
// the same acceptance bar.
//
// Recognizers run in strict priority order, never in parallel, so ties are
// impossible by construction.
type Recognizer interface {
	Name() string
	Attempt(key schema.CanonicalKey, raw schema.RawRecord) (string, bool)
}

// structuredRecognizer retries the synonym table after normalizing header
// decoration (stray spaces, hyphens, repeated underscores) that defeated
// the exact mapper lookup.
type structuredRecognizer struct{}

func (structuredRecognizer) Name() string { return "structured" }

var headerSeparators = regexp.MustCompile(`[\s\-_]+`)

func (structuredRecognizer) Attempt(key schema.CanonicalKey, raw schema.RawRecord) (string, bool) {
	for _, header := range sortedHeaders(raw) {
		normalized := headerSeparators.ReplaceAllString(strings.TrimSpace(header), "_")
		mapped, ok := schema.LookupHeader(normalized)
		if !ok || mapped != key {
			continue
		}
		if v := strings.TrimSpace(raw[header]); v != "" {
			return v, true
		}
	}
	return "", false
}

// fuzzyHeaderRecognizer collapses headers to [a-z0-9] and matches against
// collapsed synonyms, catching variants like "Pt-Name" or "ABHA  Number!".
type fuzzyHeaderRecognizer struct {
	collapsed map[string]schema.CanonicalKey
}

func newFuzzyHeaderRecognizer() *fuzzyHeaderRecognizer {
	return &fuzzyHeaderRecognizer{collapsed: schema.CollapsedSynonyms()}
}

func (*fuzzyHeaderRecognizer) Name() string { return "fuzzy_header" }

func (f *fuzzyHeaderRecognizer) Attempt(key schema.CanonicalKey, raw schema.RawRecord) (string, bool) {
	for _, header := range sortedHeaders(raw) {
		mapped, ok := f.collapsed[collapseHeader(header)]
		if !ok || mapped != key {
			continue
		}
		if v := strings.TrimSpace(raw[header]); v != "" {
			return v, true
		}
	}
	return "", false
}

func collapseHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// patternRecognizer scans the concatenated cell text of the whole row with
// field-specific patterns. It is the last tier: the row's intended columns
// told us nothing, but the value may still be buried in free text.
type patternRecognizer struct{}

func (patternRecognizer) Name() string { return "pattern" }

var (
	// Digit groups captured separately so spaced variants reassemble into
	// the canonical hyphenated form. Word boundaries keep the match from
	// starting inside longer digit runs.
	abhaScanPattern = regexp.MustCompile(`\b(\d{2})[-\s]?(\d{4})[-\s]?(\d{4})[-\s]?(\d{4})\b`)

	// Label-prefixed proper names. Longer labels first so "Name of Pt"
	// is not swallowed by the bare "Name" alternative.
	nameScanPattern = regexp.MustCompile(`(?:Patient Name|Pt Name|Name of Pt|Patient|Name)[:\s_-]*([A-Z][a-z]+(?:[\s_-][A-Z][a-z]+)*)`)
)

func (patternRecognizer) Attempt(key schema.CanonicalKey, raw schema.RawRecord) (string, bool) {
	text := concatenateCells(raw)
	if text == "" {
		return "", false
	}

	switch key {
	case schema.KeyABHAID:
		m := abhaScanPattern.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return m[1] + "-" + m[2] + "-" + m[3] + "-" + m[4], true
	case schema.KeyPatientName:
		m := nameScanPattern.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	default:
		return "", false
	}
}

// concatenateCells joins all cell values in sorted header order. Sorting
// keeps scans deterministic; regexp is byte-safe, so binary-looking or
// encoding-broken cells degrade to "no match" rather than failing.
func concatenateCells(raw schema.RawRecord) string {
	headers := sortedHeaders(raw)
	parts := make([]string, 0, len(headers))
	for _, h := range headers {
		if v := raw[h]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func sortedHeaders(raw schema.RawRecord) []string {
	headers := make([]string, 0, len(raw))
	for h := range raw {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}
