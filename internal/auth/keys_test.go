package auth

import (
	"strings"
	"testing"

	"beehive/internal/models"
)

func TestGenerateKeyPrefixes(t *testing.T) {
	adminKey, err := GenerateKey(models.RoleAdmin)
	if err != nil {
		t.Fatalf("generate admin key: %v", err)
	}
	if !strings.HasPrefix(adminKey, "bh_ak_") {
		t.Fatalf("admin key %q lacks admin prefix", adminKey)
	}

	beeKey, err := GenerateKey(models.RoleBee)
	if err != nil {
		t.Fatalf("generate bee key: %v", err)
	}
	if !strings.HasPrefix(beeKey, "bh_bk_") {
		t.Fatalf("bee key %q lacks bee prefix", beeKey)
	}

	if len(adminKey) != len("bh_ak_")+keySecretBytes*2 {
		t.Fatalf("unexpected key length %d", len(adminKey))
	}
}

func TestGenerateKeyUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		key, err := GenerateKey(models.RoleBee)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey("bh_bk_example")
	b := HashKey("bh_bk_example")
	if a != b {
		t.Fatalf("hash not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashKey("bh_bk_other") {
		t.Fatal("distinct keys hash identically")
	}
}
