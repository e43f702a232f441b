// Package httpserver provides the pointerd control API.
//
// This package implements the local control surface using stdlib net/http:
//
//   - Pointer endpoints: /v1/pointer/move, /v1/pointer/click
//   - Session endpoints: /v1/sessions
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - Middleware chain: Recover, RequestID, Audit, RateLimit, NetworkACL, Auth
//   - Optional HTTPS (WithTLS)
//   - Graceful shutdown
//   - Prometheus metrics integration
package httpserver
