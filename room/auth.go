package room

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSecret returns the hex SHA-256 of a chair secret, the form in which the
// secret is stored at room creation.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyChairSecret checks a plaintext secret against the stored hash. An
// empty secret always fails; absence of auth is never "no auth required".
func VerifyChairSecret(secret, storedHash string) bool {
	if secret == "" {
		return false
	}
	supplied := HashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(storedHash)) == 1
}
