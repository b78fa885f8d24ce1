package slackapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewSignatureVerifier("secret", 5*time.Minute)
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"event_callback"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	require.NoError(t, v.Verify(signBody("secret", ts, body), ts, body))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewSignatureVerifier("secret", 5*time.Minute)
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"event_callback"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := signBody("secret", ts, body)

	err := v.Verify(sig, ts, []byte(`{"type":"forged"}`))
	assert.ErrorContains(t, err, "signature mismatch")
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewSignatureVerifier("secret", 5*time.Minute)
	v.now = func() time.Time { return now }

	body := []byte(`{}`)
	stale := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)

	err := v.Verify(signBody("secret", stale, body), stale, body)
	assert.ErrorContains(t, err, "timestamp")
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := NewSignatureVerifier("secret", 5*time.Minute)

	assert.Error(t, v.Verify("", "1700000000", []byte(`{}`)))
	assert.Error(t, v.Verify("v0=abc", "", []byte(`{}`)))
}

func TestVerifyRejectsWrongVersion(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewSignatureVerifier("secret", 5*time.Minute)
	v.now = func() time.Time { return now }

	ts := strconv.FormatInt(now.Unix(), 10)
	err := v.Verify("v1=deadbeef", ts, []byte(`{}`))
	assert.ErrorContains(t, err, "version")
}
