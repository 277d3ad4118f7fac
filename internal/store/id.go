package store

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 4
	idMaxAttempts  = 100
	idMaxPrefixLen = 10
	fallbackPrefix = "bh"
)

// GenerateTaskID returns a new task id of the form <prefix>-<suffix>.
// It retries on collisions using the provided exists function and fails
// with ErrIDExhausted once the bounded attempt budget is spent.
func GenerateTaskID(prefix string, exists func(string) (bool, error)) (string, error) {
	prefix = SanitizePrefix(prefix)

	for i := 0; i < idMaxAttempts; i++ {
		suffix, err := randomBase36(idSuffixLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, suffix)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("generate id with prefix %q: %w", prefix, ErrIDExhausted)
}

// SanitizePrefix lowercases a project name and strips everything outside
// [a-z0-9], capping the length. An empty result falls back to "bh".
func SanitizePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= idMaxPrefixLen {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackPrefix
	}
	return b.String()
}

func randomBase36(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(buf[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
