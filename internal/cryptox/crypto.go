// Package cryptox holds the credential primitives: salt generation, the keyed
// secret hash stored for every client, and constant-time verification.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the length of a freshly generated salt, in bytes.
	SaltSize = 16

	// HashSize is the length of the derived secret hash, in bytes.
	HashSize = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// GenerateSalt returns a new random salt. A client's salt is generated once on
// creation and never changes afterwards.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashSecret derives the stored hash of secret using argon2id keyed by salt.
func HashSecret(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, HashSize)
}

// VerifySecret reports whether secret hashes to storedHash under storedSalt.
// The final comparison does not exit early on the first differing byte.
func VerifySecret(secret string, storedSalt, storedHash []byte) bool {
	candidate := HashSecret(secret, storedSalt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, storedHash) == 1
}
