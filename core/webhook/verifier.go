// Package webhook serves the custom command callback.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Header names set by the platform on every callback.
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderSignature = "X-Signature"
)

var (
	// ErrInvalidAPIKey means the presented api key is not ours.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrInvalidSignature means the body signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verifier checks that a callback was sent by the platform for our app.
type Verifier struct {
	apiKey []byte
	secret []byte
}

// NewVerifier returns a Verifier for the app credentials.
func NewVerifier(apiKey, apiSecret string) *Verifier {
	return &Verifier{apiKey: []byte(apiKey), secret: []byte(apiSecret)}
}

// Verify checks the api key first, then the HMAC-SHA256 signature over the raw body.
func (v *Verifier) Verify(apiKey, signature string, body []byte) error {
	if len(v.apiKey) == 0 || subtle.ConstantTimeCompare([]byte(apiKey), v.apiKey) != 1 {
		return ErrInvalidAPIKey
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, v.sum(body)) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) sum(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign returns the hex signature the platform would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
