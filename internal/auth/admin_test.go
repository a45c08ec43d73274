package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_Verify(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	a := Admin{Username: "admin", PasswordHash: []byte(hash)}

	assert.NoError(t, a.Verify("admin", "s3cret-pass"))
	assert.NoError(t, a.Verify(" admin ", "s3cret-pass"))
	assert.ErrorIs(t, a.Verify("admin", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, a.Verify("root", "s3cret-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, a.Verify("", "s3cret-pass"), ErrInvalidCredentials)

	var unset Admin
	assert.ErrorIs(t, unset.Verify("admin", "s3cret-pass"), ErrInvalidCredentials)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("  ")
	assert.Error(t, err)
}
