package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, c claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateAccessToken(t *testing.T) {
	v := NewJWTValidator(testSecret)

	token := signToken(t, testSecret, claims{
		OrgID: "org1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.Equal(t, "org1", identity.OrgID)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	v := NewJWTValidator(testSecret)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrInvalidToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{
			"wrong secret",
			signToken(t, "other-secret", claims{
				OrgID:            "org1",
				RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: future},
			}),
			ErrInvalidToken,
		},
		{
			"expired",
			signToken(t, testSecret, claims{
				OrgID: "org1",
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   "alice",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}),
			ErrInvalidToken,
		},
		{
			"missing subject",
			signToken(t, testSecret, claims{
				OrgID:            "org1",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			ErrMissingClaim,
		},
		{
			"missing org",
			signToken(t, testSecret, claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: future},
			}),
			ErrMissingClaim,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRejectsUnexpectedAlgorithm(t *testing.T) {
	v := NewJWTValidator(testSecret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		OrgID:            "org1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
