package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrMissingSub   = errors.New("token has no subject")
)

// DevUserID is the subject assigned to requests carrying the dev token
const DevUserID = "dev-user"

// Claims are the user token claims. Sub is the user id used for every
// ownership and participation check.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	jwt.RegisteredClaims
}

// Service validates HS256 user tokens issued by the product backend
type Service struct {
	secret       []byte
	devAuthToken string
}

// NewService creates a new auth service for tokens signed with secret
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Service{secret: []byte(secret)}, nil
}

// SetDevAuth enables a static token that authenticates as DevUserID.
// An empty token disables it.
func (s *Service) SetDevAuth(token string) {
	s.devAuthToken = token
}

// ValidateToken validates a user JWT and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if s.devAuthToken != "" &&
		subtle.ConstantTimeCompare([]byte(tokenString), []byte(s.devAuthToken)) == 1 {
		return s.GetDevClaims(), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Sub == "" {
		return nil, ErrMissingSub
	}
	return claims, nil
}

// GetDevClaims returns fixed claims for development mode
func (s *Service) GetDevClaims() *Claims {
	now := time.Now()
	return &Claims{
		Sub:   DevUserID,
		Email: "dev@localhost",
		Name:  "Developer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

// UserInfo represents public user information
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// GetUserInfo extracts user info from claims
func GetUserInfo(claims *Claims) *UserInfo {
	return &UserInfo{
		ID:    claims.Sub,
		Email: claims.Email,
		Name:  claims.Name,
	}
}
