package recovery

import (
	"log/slog"
	"strings"

	"omnigest/internal/platform/metrics"
	"omnigest/internal/schema"
	"omnigest/pkg/domain"
)

// Service rescues required identity fields that canonical mapping left
// absent. Its defining contract is that it never fails: any unrecoverable
// input degrades to "field still absent", which is data for the compliance
// evaluator, not an error.
type Service struct {
	recognizers []Recognizer
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewService builds the default strategy chain:
// structured -> fuzzy header -> pattern scan. First valid candidate wins.
func NewService(m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		recognizers: []Recognizer{
			structuredRecognizer{},
			newFuzzyHeaderRecognizer(),
			patternRecognizer{},
		},
		metrics: m,
		log:     log,
	}
}

// Rescue fills absent required fields in place, marking each rescued field
// with its fallback provenance. Fields it cannot rescue stay absent.
func (s *Service) Rescue(rec *schema.CanonicalRecord, raw schema.RawRecord) {
	for _, key := range schema.RequiredIdentityKeys {
		if rec.Present(key) {
			continue
		}
		value, strategy, ok := s.attempt(key, raw)
		if !ok {
			continue
		}
		rec.SetRecovered(key, value)
		s.metrics.ObserveRescue(string(key), strategy)
		if s.log != nil {
			s.log.Debug("field rescued via fallback",
				"field", string(key),
				"strategy", strategy,
				"record_id", rec.ID.String())
		}
	}
}

func (s *Service) attempt(key schema.CanonicalKey, raw schema.RawRecord) (string, string, bool) {
	for _, r := range s.recognizers {
		candidate, found := r.Attempt(key, raw)
		if !found {
			continue
		}
		accepted, ok := acceptCandidate(key, candidate)
		if !ok {
			// A partial or malformed match does not count as a rescue;
			// lower-priority strategies still get their turn.
			continue
		}
		return accepted, r.Name(), true
	}
	return "", "", false
}

// acceptCandidate holds every strategy to the same per-field bar. The ABHA
// field only ever accepts the exact XX-XXXX-XXXX-XXXX format.
func acceptCandidate(key schema.CanonicalKey, candidate string) (string, bool) {
	switch key {
	case schema.KeyABHAID:
		id, err := domain.NormalizeABHAID(candidate)
		if err != nil {
			return "", false
		}
		return id.String(), true
	case schema.KeyPatientName:
		name := strings.TrimSpace(candidate)
		if name == "" || strings.EqualFold(name, "Unknown/Redacted") {
			return "", false
		}
		return name, true
	default:
		return "", false
	}
}
