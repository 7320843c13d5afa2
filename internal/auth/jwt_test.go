package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	token, err := tokens.GenerateJWT("alice@example.com", "example")
	require.NoError(t, err)

	claims, err := tokens.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "example", claims.Organization)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewTokens("one", time.Hour).GenerateJWT("alice@example.com", "example")
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).VerifyJWT(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)

	token, err := tokens.GenerateJWT("alice@example.com", "example")
	require.NoError(t, err)

	_, err = tokens.VerifyJWT(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewTokens("test-secret", time.Hour).VerifyJWT("not-a-token")
	assert.Error(t, err)
}
