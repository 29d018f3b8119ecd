package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const keyPrefix = "bk_live_"

// GenerateAPIKey creates a random API key and the SHA256 hash we store.
// The raw key is shown to the user exactly once; only the hash persists.
func GenerateAPIKey() (realKey, keyHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	realKey = keyPrefix + hex.EncodeToString(buf)
	return realKey, HashKey(realKey), nil
}

// HashKey derives the stored form of an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidateKey checks a provided key against a stored hash in constant time.
func ValidateKey(providedKey, storedHash string) bool {
	computed := HashKey(providedKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
