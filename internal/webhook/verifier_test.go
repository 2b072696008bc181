package webhook

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testVerifier(secret string, at time.Time) *Verifier {
	v := NewVerifier(secret, 300*time.Second)
	v.now = func() time.Time { return at }
	return v
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Unix(1756500000, 0)
	v := testVerifier("whsec_test", now)
	body := []byte(`{"reference":"MPE-KE-20260830-ABCD1234","status":"success"}`)
	ts := now.Unix()

	sig := v.Sign(body, ts)
	assert.True(t, v.Verify(body, sig, strconv.FormatInt(ts, 10)))
}

func TestVerifyTamperedBody(t *testing.T) {
	now := time.Unix(1756500000, 0)
	v := testVerifier("whsec_test", now)
	body := []byte(`{"reference":"ref-1","amount":"25.00"}`)
	ts := now.Unix()
	sig := v.Sign(body, ts)

	tampered := []byte(`{"reference":"ref-1","amount":"2500.00"}`)
	assert.False(t, v.Verify(tampered, sig, strconv.FormatInt(ts, 10)))
}

func TestVerifyWrongSecret(t *testing.T) {
	now := time.Unix(1756500000, 0)
	body := []byte(`{"reference":"ref-1"}`)
	ts := now.Unix()
	sig := testVerifier("whsec_other", now).Sign(body, ts)

	v := testVerifier("whsec_test", now)
	assert.False(t, v.Verify(body, sig, strconv.FormatInt(ts, 10)))
}

func TestVerifyTimestampDrift(t *testing.T) {
	now := time.Unix(1756500000, 0)
	v := testVerifier("whsec_test", now)
	body := []byte(`{}`)

	cases := []struct {
		name string
		ts   int64
		want bool
	}{
		{"fresh", now.Unix(), true},
		{"edge of window", now.Add(-300 * time.Second).Unix(), true},
		{"stale replay", now.Add(-301 * time.Second).Unix(), false},
		{"far future", now.Add(10 * time.Minute).Unix(), false},
		{"slight clock skew ahead", now.Add(30 * time.Second).Unix(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := v.Sign(body, tc.ts)
			assert.Equal(t, tc.want, v.Verify(body, sig, strconv.FormatInt(tc.ts, 10)))
		})
	}
}

func TestVerifyMissingHeaders(t *testing.T) {
	now := time.Unix(1756500000, 0)
	v := testVerifier("whsec_test", now)
	body := []byte(`{}`)
	sig := v.Sign(body, now.Unix())

	assert.False(t, v.Verify(body, "", strconv.FormatInt(now.Unix(), 10)))
	assert.False(t, v.Verify(body, sig, ""))
	assert.False(t, v.Verify(body, sig, "not-a-number"))
}
