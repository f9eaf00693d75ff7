// Package tracking signs open/click tokens and rewrites email bodies so that
// opens and link clicks reach the tracking endpoints.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, tampered or expired tokens
var ErrInvalidToken = errors.New("invalid tracking token")

// Kind distinguishes open tokens from click tokens
type Kind string

const (
	KindOpen  Kind = "open"
	KindClick Kind = "click"
)

// Claims identify a tracking event
type Claims struct {
	Kind      Kind   `json:"knd"`
	EmailID   string `json:"eid"`
	Recipient string `json:"rcp"`
	URL       string `json:"url,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tracking tokens
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. A zero ttl issues tokens that never expire.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for the given event
func (s *Signer) Sign(kind Kind, emailID, recipient, url string) (string, error) {
	now := s.now()
	claims := Claims{
		Kind:      kind,
		EmailID:   emailID,
		Recipient: recipient,
		URL:       url,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign tracking token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks that it is of the expected kind
func (s *Signer) Verify(tokenString string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Kind != kind || claims.EmailID == "" {
		return nil, ErrInvalidToken
	}
	if kind == KindClick && claims.URL == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
