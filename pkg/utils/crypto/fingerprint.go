package crypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// fingerprintBytes keeps fingerprints short enough to show in a table.
const fingerprintBytes = 16

// Fingerprint derives a stable, non-reversible identifier for a credential so
// exports can be told apart without storing or logging the secret itself.
func Fingerprint(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:fingerprintBytes])
}
