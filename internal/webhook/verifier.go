// Package webhook verifies that inbound processor callbacks are authentic.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Verifier checks the HMAC signature and replay window on webhook deliveries.
// The signature is hex(HMAC-SHA256(secret, timestamp + "." + body)); the
// timestamp header is unix seconds and must be within Tolerance of now.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = 300 * time.Second
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// Verify returns true only when both the timestamp is inside the replay
// window and the signature matches. Missing signature or timestamp rejects.
func (v *Verifier) Verify(rawBody []byte, signatureHeader, timestampHeader string) bool {
	if signatureHeader == "" || timestampHeader == "" {
		return false
	}
	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return false
	}
	drift := v.now().Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestampHeader))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}

// Sign computes the signature for a body and timestamp. Used by tests and by
// the mock processor.
func (v *Verifier) Sign(rawBody []byte, timestamp int64) string {
	ts := strconv.FormatInt(timestamp, 10)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
