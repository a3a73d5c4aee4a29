package utils

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGeneratePasswordCharacterClasses(t *testing.T) {
	seen := map[string]bool{}
	for range 200 {
		pw := GeneratePassword()
		require.Len(t, pw, 12)
		assert.True(t, strings.IndexFunc(pw, unicode.IsUpper) >= 0, pw)
		assert.True(t, strings.IndexFunc(pw, unicode.IsLower) >= 0, pw)
		assert.True(t, strings.IndexFunc(pw, unicode.IsDigit) >= 0, pw)
		assert.True(t, strings.HasSuffix(pw, "!"), pw)
		seen[pw] = true
	}
	assert.Len(t, seen, 200)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "S3cret!"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret!"))
}
