package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingClaim = errors.New("token missing required claim")
)

// Identity is the validated result of a connection handshake.
type Identity struct {
	UserID string
	OrgID  string
}

// TokenValidator validates a handshake credential and resolves the identity
// behind it. Session issuance lives elsewhere; the realtime engine only
// verifies.
type TokenValidator interface {
	Validate(token string) (Identity, error)
}

type claims struct {
	OrgID string `json:"org_id"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 access tokens. Subject carries the user ID,
// the org_id claim the organization.
type JWTValidator struct {
	secret []byte
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

func (v *JWTValidator) Validate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.Subject == "" || c.OrgID == "" {
		return Identity{}, ErrMissingClaim
	}

	return Identity{UserID: c.Subject, OrgID: c.OrgID}, nil
}
