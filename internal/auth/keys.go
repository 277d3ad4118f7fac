package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"beehive/internal/models"
)

const keySecretBytes = 24

// GenerateKey mints a new API key secret for the given role. The prefix
// makes the role recognizable at a glance in config files and logs.
func GenerateKey(role models.KeyRole) (string, error) {
	prefix := "bh_bk_"
	if role == models.RoleAdmin {
		prefix = "bh_ak_"
	}
	buf := make([]byte, keySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// HashKey returns the SHA-256 hex digest of a key secret. The digest is
// deterministic so it can serve as the stored primary key and the
// revocation handle; the plaintext secret is never persisted.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
