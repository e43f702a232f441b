package token

import (
	"crypto/rand"
	"encoding/base64"
)

// Prefix marks generated tokens.
const Prefix = "pdt_"

// DefaultLength is the default token length in bytes.
const DefaultLength = 32

// Generate generates a cryptographically secure random token.
func Generate() (string, error) {
	body, err := GenerateWithLength(DefaultLength)
	if err != nil {
		return "", err
	}
	return Prefix + body, nil
}

// GenerateWithLength returns length random bytes, Base64 RawURL encoded.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
