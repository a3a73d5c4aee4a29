package utils

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GeneratePassword returns a random 12 character password for accounts
// created by an administrator.  It always holds an upper case letter, a
// lower case letter, a digit and a symbol.  It is shown once and never
// stored in clear.
func GeneratePassword() string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")
	upper := 'A' + id[0]%26
	lower := 'a' + id[1]%26
	digit := '0' + id[2]%10
	return string([]byte{upper, lower, digit}) + hex[:8] + "!"
}
