// Package crypto implements password hashing and the random generators used
// for staff credentials and bag codes.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for stored account passwords.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

func hash(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// NewPasswordHash draws a fresh salt and hashes password with it. The
// plaintext is never stored; staff and administrator records keep only
// the returned hash and salt.
func NewPasswordHash(password string) (hashed, salt []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("password salt: %w", err)
	}
	return hash(password, salt), salt, nil
}

// VerifyPassword reports whether password matches a stored hash and salt.
// An account without a stored hash never verifies.
func VerifyPassword(password string, salt, stored []byte) bool {
	if len(stored) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(hash(password, salt), stored) == 1
}
