package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys, err := NewKeys(privateKey, &privateKey.PublicKey)
	require.NoError(t, err)
	return keys
}

func TestGenerateAndValidateToken(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-1", []string{RoleUser}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := keys.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasRole(RoleUser))
	require.False(t, claims.HasRole(RoleAdmin))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-1", []string{RoleUser}, time.Hour)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = keys.ValidateToken(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	issuer := testKeys(t)
	verifier := testKeys(t)

	token, err := issuer.GenerateToken("user-1", []string{RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-1", []string{RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = keys.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
