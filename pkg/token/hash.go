package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// HashPrefix marks a hashed token in configuration.
const HashPrefix = "sha256:"

// ErrInvalidHash is returned for a malformed "sha256:" value.
var ErrInvalidHash = errors.New("token: sha256 hash must be 64 hex characters")

// Hash returns the configuration form of a token's hash.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return HashPrefix + hex.EncodeToString(sum[:])
}

// Matcher checks presented tokens against a configured one.
type Matcher struct {
	sum [sha256.Size]byte
}

// NewMatcher parses a configured token, either plain or in Hash form.
// An empty spec returns a nil Matcher, which matches nothing.
func NewMatcher(spec string) (*Matcher, error) {
	if spec == "" {
		return nil, nil
	}

	m := &Matcher{}
	hexSum, hashed := strings.CutPrefix(spec, HashPrefix)
	if !hashed {
		m.sum = sha256.Sum256([]byte(spec))
		return m, nil
	}

	raw, err := hex.DecodeString(hexSum)
	if err != nil || len(raw) != sha256.Size {
		return nil, ErrInvalidHash
	}
	copy(m.sum[:], raw)
	return m, nil
}

// Match reports whether presented is the configured token.
func (m *Matcher) Match(presented string) bool {
	if m == nil {
		return false
	}
	sum := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(sum[:], m.sum[:]) == 1
}
