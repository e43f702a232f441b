package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form PD-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "PD-PROTO-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Crypto Errors (CRYPTO)
// ============================================================================

var (
	// ErrCrypto indicates encryption or decryption failed.
	ErrCrypto = NewDomainError("PD-CRYPTO-4000", "crypto failure")

	// ErrBadPadding indicates the decrypted plaintext carried invalid padding.
	ErrBadPadding = NewDomainError("PD-CRYPTO-4001", "bad padding")

	// ErrInvalidKey indicates the configured key cannot be used.
	ErrInvalidKey = NewDomainError("PD-CRYPTO-4002", "invalid key")
)

// ============================================================================
// Framing Errors (FRAME)
// ============================================================================

var (
	// ErrMalformedFrame indicates a datagram or plaintext too short to carry its header.
	ErrMalformedFrame = NewDomainError("PD-FRAME-4000", "malformed frame")
)

// ============================================================================
// Transport Errors (NET)
// ============================================================================

var (
	// ErrTransport indicates a socket send or receive failed.
	ErrTransport = NewDomainError("PD-NET-5000", "transport failure")
)

// ============================================================================
// Protocol Errors (PROTO)
// ============================================================================

var (
	// ErrProtocolViolation is the parent code for rejected inbound messages.
	ErrProtocolViolation = NewDomainError("PD-PROTO-4000", "protocol violation")

	// ErrOpenSequence indicates an open request carried a non-zero sequence number.
	ErrOpenSequence = NewDomainError("PD-PROTO-4001", "open request must carry sequence 0")

	// ErrStaleSequence indicates a sequence number not above the session's current one.
	ErrStaleSequence = NewDomainError("PD-PROTO-4002", "stale sequence number")

	// ErrNoSession indicates a message from an address without a live session.
	ErrNoSession = NewDomainError("PD-PROTO-4003", "no session for address")

	// ErrUnknownMessage indicates a payload matching no configured token.
	ErrUnknownMessage = NewDomainError("PD-PROTO-4004", "unknown message")

	// ErrRateLimited indicates the source address exceeded its datagram budget.
	ErrRateLimited = NewDomainError("PD-PROTO-4290", "rate limited")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = NewDomainError("PD-SYS-5000", "internal error")

	// ErrBadRequest indicates a malformed control request.
	ErrBadRequest = NewDomainError("PD-SYS-4000", "bad request")

	// ErrUnauthorized indicates a missing or wrong control API token.
	ErrUnauthorized = NewDomainError("PD-SYS-4010", "unauthorized")

	// ErrForbidden indicates a control request from a disallowed address.
	ErrForbidden = NewDomainError("PD-SYS-4030", "forbidden")

	// ErrTooManyRequests indicates the control API rate limit was hit.
	ErrTooManyRequests = NewDomainError("PD-SYS-4290", "too many requests")

	// ErrNotReady indicates the UDP listener is not serving yet.
	ErrNotReady = NewDomainError("PD-SYS-5030", "not ready")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("PD-ARG-1001", "invalid argument")
)

// IsProtocolViolation reports whether err is one of the PD-PROTO errors.
func IsProtocolViolation(err error) bool {
	code := GetErrorCode(err)
	return len(code) > len("PD-PROTO-") && code[:len("PD-PROTO-")] == "PD-PROTO-"
}
