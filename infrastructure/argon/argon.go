// Package argon hashes user passwords with argon2id. Hashes are stored as
// hex(salt):hex(key) and always use Params, so changing Params invalidates
// every stored hash.
package argon

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPassword = errors.New("password is required")
	ErrInvalidHash   = errors.New("invalid hash format")
)

// Params controls argon2id hashing behavior.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultParams = &Params{
	Memory:      64 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// CreateHash derives a key from password with a fresh random salt.
func CreateHash(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	p := DefaultParams

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// ComparePasswordAndHash reports whether password matches the stored hash.
func ComparePasswordAndHash(password, stored string) (bool, error) {
	salt, key, err := decodeHash(stored)
	if err != nil {
		return false, err
	}
	p := DefaultParams
	other := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

func decodeHash(stored string) ([]byte, []byte, error) {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok || saltHex == "" || keyHex == "" {
		return nil, nil, ErrInvalidHash
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, nil, errors.New("invalid salt")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, errors.New("invalid hash")
	}
	return salt, key, nil
}
