package argon

import (
	"strings"
	"testing"
)

func TestCreateAndCompare(t *testing.T) {
	hash, err := CreateHash("secret-pass")
	if err != nil {
		t.Fatalf("create hash: %v", err)
	}
	ok, err := ComparePasswordAndHash("secret-pass", hash)
	if err != nil {
		t.Fatalf("compare hash: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to match")
	}

	ok, err = ComparePasswordAndHash("wrong", hash)
	if err != nil {
		t.Fatalf("compare hash wrong: %v", err)
	}
	if ok {
		t.Fatalf("expected password mismatch")
	}
}

func TestHashFormatIsSaltColonKey(t *testing.T) {
	hash, err := CreateHash("secret-pass")
	if err != nil {
		t.Fatalf("create hash: %v", err)
	}
	salt, key, ok := strings.Cut(hash, ":")
	if !ok {
		t.Fatalf("expected salt:key, got %q", hash)
	}
	if len(salt) != int(DefaultParams.SaltLength)*2 || len(key) != int(DefaultParams.KeyLength)*2 {
		t.Fatalf("unexpected hex lengths salt=%d key=%d", len(salt), len(key))
	}
}

func TestSaltsDiffer(t *testing.T) {
	a, _ := CreateHash("same")
	b, _ := CreateHash("same")
	if a == b {
		t.Fatalf("expected distinct salts for repeated hashing")
	}
}

func TestRejectsEmptyAndMalformed(t *testing.T) {
	if _, err := CreateHash("  "); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := ComparePasswordAndHash("x", "no-separator"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if _, err := ComparePasswordAndHash("x", "zz:zz"); err == nil {
		t.Fatalf("expected hex decode error")
	}
}
