// Package domain defines the core domain values shared by pointerd.
//
// It has no IO dependencies. This package contains:
//
//   - Errors: structured error codes for crypto, framing, transport and protocol faults
//   - Session IDs: ULID-based identifiers for pointer sessions
package domain
