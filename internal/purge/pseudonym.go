package purge

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"omnigest/internal/schema"
)

const pseudonymBytes = 8

// Pseudonymizer replaces identity fields with stable opaque tokens for
// research exports. Unlike erasure this produces no audit lineage and
// never touches fields a purge has already redacted. With a Secret set,
// tokens cannot be confirmed by hashing guessed identities.
type Pseudonymizer struct {
	Secret []byte
}

// Pseudonymize rewrites Patient_Name to Pt_<token> and ABHA_ID to
// ABHA_<token>. Tokens are keyed SHAKE-128 digests, so the same identity
// always maps to the same pseudonym across batches.
func (p Pseudonymizer) Pseudonymize(rec *schema.CanonicalRecord) {
	if name := rec.Value(schema.KeyPatientName); usable(name) {
		rec.Overwrite(schema.KeyPatientName, "Pt_"+p.token(name))
	}
	if id := rec.Value(schema.KeyABHAID); usable(id) {
		rec.Overwrite(schema.KeyABHAID, "ABHA_"+p.token(id))
	}
}

func usable(v string) bool {
	return v != "" && v != schema.SentinelRedacted
}

func (p Pseudonymizer) token(v string) string {
	shake := sha3.NewShake128()
	shake.Write(p.Secret)
	shake.Write([]byte(v))
	out := make([]byte, pseudonymBytes)
	shake.Read(out) //nolint:errcheck
	return hex.EncodeToString(out)
}
