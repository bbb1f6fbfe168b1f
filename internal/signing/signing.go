// Package signing implements the shared-secret command authentication used
// between the API server and tunnel agents. A command is authenticated by an
// HMAC-SHA256 over the exact JSON bytes sent on the wire; both sides derive
// the MAC from the same byte sequence, so no re-serialization happens on the
// verifying side.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header carries the hex-encoded payload signature on agent requests.
const Header = "X-Signature"

// emptyPayload is the canonical form of an absent request body. Requests
// without a body (keypair generation) are signed over this value.
var emptyPayload = []byte("{}")

// Canonical returns the byte sequence the signature is computed over.
func Canonical(payload []byte) []byte {
	if len(payload) == 0 {
		return emptyPayload
	}
	return payload
}

// Sign computes the hex-encoded HMAC-SHA256 of the payload under the secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(Canonical(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the payload under the secret.
// The comparison is constant-time.
func Verify(payload []byte, signature, secret string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(Canonical(payload))
	return hmac.Equal(want, mac.Sum(nil))
}
