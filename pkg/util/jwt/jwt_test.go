package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	Init("test-secret-0123456789abcdef", 5)

	token, err := GenerateAccessToken("P1")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "P1", claims.UserID)
	require.Equal(t, "access_token", claims.Subject)
	require.NotEmpty(t, claims.TokenID)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	Init("secret-a-0123456789abcdef", 5)
	token, err := GenerateAccessToken("P1")
	require.NoError(t, err)

	Init("secret-b-0123456789abcdef", 5)
	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestProfileTokenCarriesAttributes(t *testing.T) {
	Init("test-secret-0123456789abcdef", 5)
	token, err := GenerateProfileToken("P2", "bob", true)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Nickname)
	require.True(t, claims.IsPrivate)
}
