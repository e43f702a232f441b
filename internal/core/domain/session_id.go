package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix prefixes every pointer session ID.
const SessionIDPrefix = "pd-"

// sessionIDLength is len("pd-") + 26 ULID characters.
const sessionIDLength = 29

// GenerateSessionID generates a new session ID using ULID.
// Format: pd-{ulid_lowercase}, 29 characters total.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a string is a valid session ID.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, SessionIDPrefix) || len(id) != sessionIDLength {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}

// SessionIDTime returns the creation time embedded in a session ID.
func SessionIDTime(id string) (time.Time, bool) {
	if !IsValidSessionID(id) {
		return time.Time{}, false
	}
	u, err := ulid.ParseStrict(strings.ToUpper(id[len(SessionIDPrefix):]))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
