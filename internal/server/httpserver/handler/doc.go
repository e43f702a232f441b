// Package handler provides the control API handlers for pointerd.
//
// This package contains handlers for all HTTP endpoints:
//
//   - health.go: health, readiness and metrics
//   - pointer.go: movement input and click broadcast
//   - session.go: session listing
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call the dispatcher or movement hub
//   - Format and return response
//   - Map domain errors to HTTP status codes
package handler
