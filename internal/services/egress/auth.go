package egress

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// videoGrant is the media server's permission block
type videoGrant struct {
	RoomRecord bool `json:"roomRecord,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
}

// signToken issues a short-lived access token that may manage room recordings
func signToken(apiKey, apiSecret string, ttl time.Duration, now time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   apiKey,
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: videoGrant{RoomRecord: true},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return token, nil
}
