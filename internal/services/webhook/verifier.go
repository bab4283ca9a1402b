// Package webhook authenticates, decodes and routes media server events.
package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors
var (
	ErrMissingAuth      = errors.New("missing webhook authorization")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type webhookClaims struct {
	jwt.RegisteredClaims
	SHA256 string `json:"sha256"`
}

// Verifier checks that a webhook body was signed by the media server.
// The Authorization header carries an HS256 token issued by the API key
// whose sha256 claim is the base64 digest of the body.
type Verifier struct {
	apiKey    string
	apiSecret []byte
	leeway    time.Duration
}

// NewVerifier creates a verifier for one API key pair
func NewVerifier(apiKey, apiSecret string, leeway time.Duration) *Verifier {
	return &Verifier{apiKey: apiKey, apiSecret: []byte(apiSecret), leeway: leeway}
}

// Verify returns ErrMissingAuth or an error wrapping ErrInvalidSignature
func (v *Verifier) Verify(body []byte, authHeader string) error {
	raw := strings.TrimSpace(authHeader)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return ErrMissingAuth
	}
	if len(v.apiSecret) == 0 {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	claims := &webhookClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.apiKey),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	sum := sha256.Sum256(body)
	want := base64.StdEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(want), []byte(claims.SHA256)) != 1 {
		return fmt.Errorf("%w: body digest mismatch", ErrInvalidSignature)
	}
	return nil
}
