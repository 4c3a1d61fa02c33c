// Package webhook authenticates inbound provider callbacks. The messaging
// provider signs every delivery by computing an HMAC-SHA256 over the raw
// request body with a shared secret and sending it in a request header as
// "sha256=<lowercase hex>". Verification is a pure function over the exact
// body bytes; callers must reject the request as unauthorized on failure and
// must never parse an unverified body as trusted input.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "X-Hub-Signature-256"

// sigPrefix tags the algorithm in the rendered signature value.
const sigPrefix = "sha256="

// Sign computes the signature value for body under secret, in the exact form
// the provider sends it ("sha256=<hex>"). Exposed for tests and for signing
// outbound callbacks in development tooling.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether provided is a valid signature for body under
// secret.
//
// Fail-closed rules:
//   - an empty secret or an empty provided signature is invalid, no comparison
//     is attempted;
//   - a length mismatch is invalid before the constant-time comparison runs
//     (length is not secret);
//   - otherwise the computed and provided strings are compared in constant
//     time to prevent timing side channels.
func VerifySignature(body []byte, provided, secret string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(body, secret)
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
