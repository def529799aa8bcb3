package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashProducesDifferentStringsThatBothVerify(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secret1")
	require.NoError(t, err)
	second, err := hasher.Hash("secret1")
	require.NoError(t, err)

	require.NotEqual(t, first, second, "each hash must carry a fresh salt")
	require.True(t, hasher.Verify("secret1", first))
	require.True(t, hasher.Verify("secret1", second))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)

	require.False(t, hasher.Verify("secret2", hash))
	require.False(t, hasher.Verify("", hash))
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	require.False(t, hasher.Verify("secret1", ""))
	require.False(t, hasher.Verify("secret1", "not-a-bcrypt-hash"))
	require.False(t, hasher.Verify("secret1", "$2a$корявый"))
}

func TestNewHasherClampsCost(t *testing.T) {
	hasher := NewHasher(9999)

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	require.True(t, hasher.Verify("secret1", hash))
}
