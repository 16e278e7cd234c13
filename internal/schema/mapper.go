package schema

import (
	"sort"
	"strings"
)

// synonyms maps known source-header variants to canonical keys. Matching is
// case-insensitive; the table keeps the messy spellings observed in real
// hospital exports. Headers not in the table are dropped.
var synonyms = map[string]CanonicalKey{
	// ABHA_ID
	"id_abha":     KeyABHAID,
	"abha_id":     KeyABHAID,
	"health_id":   KeyABHAID,
	"abha":        KeyABHAID,
	"abha_no":     KeyABHAID,
	"abha number": KeyABHAID,

	// Patient_Name
	"patient_name": KeyPatientName,
	"patient name": KeyPatientName,
	"patientname":  KeyPatientName,
	"full_name":    KeyPatientName,
	"patient":      KeyPatientName,
	"pt_name":      KeyPatientName,

	// Notice_ID
	"consent_id":   KeyNoticeID,
	"notice_id":    KeyNoticeID,
	"doc_id":       KeyNoticeID,
	"reference_no": KeyNoticeID,

	// Consent_Status
	"consent":        KeyConsentStatus,
	"consent_status": KeyConsentStatus,
	"status":         KeyConsentStatus,

	// Notice_Date
	"date":         KeyNoticeDate,
	"notice_date":  KeyNoticeDate,
	"consent_date": KeyNoticeDate,

	// Clinical_Payload
	"data":             KeyClinicalPayload,
	"clinical_payload": KeyClinicalPayload,
	"report":           KeyClinicalPayload,
	"diagnosis":        KeyClinicalPayload,
	"summary":          KeyClinicalPayload,

	// Data_Purpose
	"purpose":      KeyDataPurpose,
	"data_purpose": KeyDataPurpose,
}

// Mapper canonicalizes raw rows against the synonym table. It never errors:
// a header with no match is ignored and a required field with no source
// column stays explicitly absent for the recovery stage to act on.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// Map produces a CanonicalRecord from one raw row. Whitespace-only cell
// values count as absent. When several source headers map to the same
// canonical key, the first non-empty value in header sort order wins, so
// mapping identical rows is deterministic.
func (m *Mapper) Map(raw RawRecord) CanonicalRecord {
	rec := NewCanonicalRecord()
	headers := make([]string, 0, len(raw))
	for header := range raw {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	for _, header := range headers {
		key, ok := LookupHeader(header)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(raw[header])
		if trimmed == "" {
			continue
		}
		if rec.Present(key) {
			continue
		}
		rec.Set(key, trimmed)
	}
	return rec
}

// LookupHeader resolves a source header to its canonical key.
func LookupHeader(header string) (CanonicalKey, bool) {
	key, ok := synonyms[strings.ToLower(strings.TrimSpace(header))]
	return key, ok
}

// CollapsedSynonyms returns header synonyms keyed by their collapsed form
// (lowercase, [a-z0-9] only). The fuzzy recovery recognizer matches against
// this when exact lookup fails on decorated headers like "Pt-Name  ".
func CollapsedSynonyms() map[string]CanonicalKey {
	out := make(map[string]CanonicalKey, len(synonyms))
	for header, key := range synonyms {
		out[collapse(header)] = key
	}
	// The canonical names themselves are acceptable headers too.
	for _, key := range canonicalKeys {
		out[collapse(string(key))] = key
	}
	return out
}

func collapse(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
