package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT(42)
	require.NoError(t, err)

	id, err := ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestJWTRejectsTampered(t *testing.T) {
	InitJWT("test-secret")
	token, err := GenerateJWT(7)
	require.NoError(t, err)

	InitJWT("other-secret")
	_, err = ParseJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsExpired(t *testing.T) {
	InitJWT("test-secret")
	past := time.Now().Add(-2 * time.Hour)
	claims := Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ParseJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
