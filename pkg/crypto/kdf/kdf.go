// Package kdf derives the pre-shared AES key from operator-supplied material.
//
// Two algorithms are supported:
//
//   - sha256: the first KeyLength bytes of SHA-256(password), the default.
//     Existing clients seal OPEN with this key but expect later server
//     frames under SHA-256(password || open IV), which this server does not
//     derive; such clients interoperate only as far as the OPEN exchange.
//   - argon2id: Argon2id over password and a salt. Clients must be configured
//     with the same derived key (usually as hex).
package kdf

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Algorithm names a key derivation algorithm.
type Algorithm string

const (
	SHA256   Algorithm = "sha256"
	Argon2ID Algorithm = "argon2id"
)

const (
	// KeyLength is the derived key length (AES-128).
	KeyLength = 16

	// MinSaltLength is the minimum salt length accepted for argon2id.
	MinSaltLength = 8

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	ErrEmptyPassword = errors.New("kdf: password is empty")
	ErrSaltTooShort  = errors.New("kdf: salt too short (minimum 8 bytes)")
	ErrUnknownAlg    = errors.New("kdf: unknown algorithm")
	ErrInvalidHexKey = errors.New("kdf: key must be 32, 48 or 64 hex characters")
)

// ParseAlgorithm parses an algorithm name. Empty selects SHA256.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", SHA256:
		return SHA256, nil
	case Argon2ID:
		return Argon2ID, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlg, s)
	}
}

// Derive returns a KeyLength-byte key for password using alg.
// salt is ignored by SHA256.
func Derive(alg Algorithm, password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	switch alg {
	case "", SHA256:
		return FromSHA256(password), nil
	case Argon2ID:
		return FromArgon2ID(password, salt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlg, alg)
	}
}

// FromSHA256 returns the first KeyLength bytes of SHA-256(password).
func FromSHA256(password []byte) []byte {
	sum := sha256.Sum256(password)
	key := make([]byte, KeyLength)
	copy(key, sum[:KeyLength])
	return key
}

// FromArgon2ID derives a key with Argon2id.
func FromArgon2ID(password, salt []byte) ([]byte, error) {
	if len(salt) < MinSaltLength {
		return nil, ErrSaltTooShort
	}
	return argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, KeyLength), nil
}

// ParseHexKey decodes a raw AES-128/192/256 key.
func ParseHexKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 32, 48, 64:
	default:
		return nil, ErrInvalidHexKey
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHexKey, err)
	}
	return key, nil
}

// ZeroKey overwrites key material in place.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
