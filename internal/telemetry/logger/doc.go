// Package logger builds the structured loggers used by pointerd.
//
// New returns a *slog.Logger whose handler redacts secrets (see
// redact.go) and whose level is shared process-wide, so SetLevel applies
// a reloaded log.level to every logger at once. WithRequestID carries
// the control API request ID through request contexts.
package logger
