package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	id := uuid.New()
	tok, err := GenerateToken(id, "ada@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	require.Equal(t, id, claims.UserID)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, id.String(), claims.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken(uuid.New(), "ada@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, "other-secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken(uuid.New(), "ada@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}
