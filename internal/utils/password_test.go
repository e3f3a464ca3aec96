package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_SaltedAndVerifiable(t *testing.T) {
	h1, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", h1)
	assert.NotEqual(t, h1, h2, "hashes must be salted")
	assert.True(t, VerifyPassword(h1, "s3cret"))
	assert.True(t, VerifyPassword(h2, "s3cret"))
	assert.False(t, VerifyPassword(h1, "wrong"))
}

func TestHashPassword_HonoursCost(t *testing.T) {
	h, err := HashPassword("pw", bcrypt.MinCost+1)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(h))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestHashPassword_InvalidCost(t *testing.T) {
	_, err := HashPassword("pw", bcrypt.MaxCost+1)
	assert.Error(t, err)
}

func TestVerifyPassword_GarbageHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "pw"))
}

func TestHashPassword_ZeroCostUsesDefault(t *testing.T) {
	h, err := HashPassword("pw", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(h))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestHashPassword_LengthLimitIsInBytes(t *testing.T) {
	_, err := HashPassword(strings.Repeat("p", MaxPasswordBytes), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordBytes+1), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 37 two-byte runes: short in characters, too long for bcrypt
	_, err = HashPassword(strings.Repeat("é", 37), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
