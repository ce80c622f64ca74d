// Package signature signs outbound webhook payloads and verifies inbound ones
// with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Header carries the hex signature on hmac-authenticated requests, both
// inbound and outbound.
const Header = "X-Signature-256"

// Sign returns hex(HMAC-SHA256(payload, secret)).
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature of payload and compares it to sig in
// constant time. A "sha256=" prefix on sig is accepted.
func Verify(payload []byte, sig, secret string) bool {
	sig = strings.TrimPrefix(sig, "sha256=")
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(sig))
}
