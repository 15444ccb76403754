package certificate

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// PreviewLen is the number of fingerprint hex characters safe to expose
// in API responses. The full fingerprint never leaves the store.
const PreviewLen = 8

// ComputeFingerprint derives the integrity fingerprint from the
// certificate's immutable fields. The digest is deterministic: the same
// three inputs always reproduce the same value, so recomputing it from
// stored fields detects any post-issuance mutation.
//
// This is an integrity check, not an authentication signature. Anyone
// holding the inputs can recompute it; it proves the record was not
// altered after issuance, not that it came from a trusted issuer.
func ComputeFingerprint(ownerIdentityID, certificateID, issuedAt string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", ownerIdentityID, certificateID, issuedAt)))
	return hex.EncodeToString(sum[:])
}

// FingerprintsEqual compares two fingerprints in constant time.
func FingerprintsEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Preview returns the short non-sensitive prefix of a fingerprint used
// as a verification hint in responses.
func Preview(fingerprint string) string {
	if len(fingerprint) <= PreviewLen {
		return fingerprint
	}
	return fingerprint[:PreviewLen] + "..."
}
