// Package export renders compliant records as a FHIR collection bundle for
// downstream ABDM consumers.
package export

import (
	"fmt"

	"omnigest/internal/purge"
	"omnigest/internal/schema"
	"omnigest/pkg/domain"
)

// ABHA identifier system used in the ABDM sandbox.
const abhaIdentifierSystem = "https://healthidsbx.abdm.gov.in"

// Extension URLs carried on exported Patient resources.
const (
	extConsentStatus = "https://omnigest.dev/fhir/ext/consent-status"
	extNoticeID      = "https://omnigest.dev/fhir/ext/notice-id"
)

type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Entry        []Entry `json:"entry"`
}

type Entry struct {
	Resource Patient `json:"resource"`
}

type Patient struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id"`
	Identifier   []Identifier `json:"identifier"`
	Name         []HumanName  `json:"name"`
	Extension    []Extension  `json:"extension,omitempty"`
}

type Identifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type HumanName struct {
	Text string `json:"text"`
}

type Extension struct {
	URL         string `json:"url"`
	ValueString string `json:"valueString"`
}

// Builder assembles bundles from dispositioned records. Only PROCESSED
// records are exportable; quarantined and purged rows never leave the
// system through this path.
type Builder struct {
	// Pseudonymize swaps identity fields for stable opaque tokens, for
	// research consumers that must not see real identities.
	Pseudonymize bool

	// PseudonymSecret keys the tokens; see purge.Pseudonymizer.
	PseudonymSecret []byte
}

// BuildBundle renders the exportable subset of recs. Records with any
// other disposition are skipped, never errored: a batch with purges in it
// still exports its clean rows.
func (b *Builder) BuildBundle(recs []schema.CanonicalRecord) (Bundle, error) {
	bundle := Bundle{ResourceType: "Bundle", Type: "collection", Entry: []Entry{}}

	for i := range recs {
		rec := recs[i]
		if rec.Disposition != domain.DispositionProcessed {
			continue
		}
		if b.Pseudonymize {
			rec = rec.Clone()
			purge.Pseudonymizer{Secret: b.PseudonymSecret}.Pseudonymize(&rec)
		}

		patient := Patient{
			ResourceType: "Patient",
			ID:           rec.ID.String(),
			Identifier: []Identifier{{
				System: abhaIdentifierSystem,
				Value:  rec.Value(schema.KeyABHAID),
			}},
			Name: []HumanName{{Text: rec.Value(schema.KeyPatientName)}},
		}
		if v := rec.Value(schema.KeyConsentStatus); v != "" {
			patient.Extension = append(patient.Extension, Extension{URL: extConsentStatus, ValueString: v})
		}
		if v := rec.Value(schema.KeyNoticeID); v != "" {
			patient.Extension = append(patient.Extension, Extension{URL: extNoticeID, ValueString: v})
		}

		if err := verifyPatientShape(patient); err != nil {
			return Bundle{}, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		bundle.Entry = append(bundle.Entry, Entry{Resource: patient})
	}
	return bundle, nil
}

// verifyPatientShape rejects resources that would leak sentinels or ship
// without an identifier. A PROCESSED record always satisfies this; the
// check guards against disposition stamps drifting from field state.
func verifyPatientShape(p Patient) error {
	if len(p.Identifier) == 0 || p.Identifier[0].Value == "" {
		return fmt.Errorf("patient resource without identifier")
	}
	if p.Identifier[0].Value == schema.SentinelRedacted {
		return fmt.Errorf("purge sentinel in patient identifier")
	}
	if len(p.Name) == 0 || p.Name[0].Text == schema.SentinelRedacted {
		return fmt.Errorf("purge sentinel in patient name")
	}
	return nil
}
