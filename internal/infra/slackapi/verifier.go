package slackapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// signatureVersion is the Slack signing scheme version prefix.
const signatureVersion = "v0"

// SignatureVerifier authenticates inbound Slack requests using the app
// signing secret. Requests older than maxAge are rejected to blunt replay.
type SignatureVerifier struct {
	signingSecret string
	maxAge        time.Duration
	now           func() time.Time
}

// NewSignatureVerifier creates a verifier for the given signing secret.
func NewSignatureVerifier(signingSecret string, maxAge time.Duration) *SignatureVerifier {
	return &SignatureVerifier{
		signingSecret: signingSecret,
		maxAge:        maxAge,
		now:           time.Now,
	}
}

// Verify checks the X-Slack-Signature header against the request timestamp
// and raw body.
func (v *SignatureVerifier) Verify(signature, timestamp string, body []byte) error {
	if v.signingSecret == "" {
		return fmt.Errorf("signing secret is not configured")
	}
	if signature == "" || timestamp == "" {
		return fmt.Errorf("missing signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid request timestamp: %w", err)
	}

	age := v.now().UTC().Sub(time.Unix(ts, 0))
	if age > v.maxAge || age < -v.maxAge {
		return fmt.Errorf("request timestamp outside allowed window")
	}

	if !strings.HasPrefix(signature, signatureVersion+"=") {
		return fmt.Errorf("unsupported signature version")
	}

	mac := hmac.New(sha256.New, []byte(v.signingSecret))
	fmt.Fprintf(mac, "%s:%s:", signatureVersion, timestamp)
	mac.Write(body)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
