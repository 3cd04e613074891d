// Package signature authenticates inbound webhook requests.
//
// Slack signs each request with v0 = hex(HMAC-SHA256(secret, "v0:{ts}:{body}"))
// and sends the signing timestamp alongside. Verification rejects stale
// timestamps before doing any signature work, then compares in constant time.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// ReplayWindow is the maximum allowed clock skew between the request
// timestamp and the receiver's wall clock, in either direction.
const ReplayWindow = 300 * time.Second

// Verifier validates webhook signatures for one signing secret.
// Now is injectable so replay-window behavior is testable; it defaults
// to time.Now.
type Verifier struct {
	secret string
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// NewVerifierAt returns a Verifier with a fixed clock. Intended for tests.
func NewVerifierAt(secret string, now func() time.Time) *Verifier {
	return &Verifier{secret: secret, now: now}
}

// Verify reports whether signature is a valid v0 signature over body at
// timestamp. It is a pure function of its inputs and the clock: no error
// path, a malformed timestamp or signature simply fails verification.
func (v *Verifier) Verify(timestamp string, body []byte, signature string) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	skew := v.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(ReplayWindow/time.Second) {
		return false
	}

	expected := Compute(v.secret, timestamp, body)
	return constantTimeEqual(expected, signature)
}

// Compute returns the v0 signature for the given timestamp and body.
func Compute(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// constantTimeEqual compares two signature strings without early exit on
// the first mismatching byte. Lengths are not secret, so a length mismatch
// rejects immediately; equal-length strings are XOR-accumulated end to end.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var acc byte
	for i := 0; i < len(a); i++ {
		acc |= a[i] ^ b[i]
	}
	return acc == 0
}
