// Package connection provides the HTTP client pointerd-cli uses to talk
// to the control API of a running pointerd-server.
//
// Responses arrive in the server's standard envelope; ParseResponse
// unwraps the data field on success and returns an *APIError otherwise.
package connection
