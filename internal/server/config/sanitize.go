package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Security.Password = maskSecret(sanitized.Security.Password)
	sanitized.Security.KeyHex = maskSecret(sanitized.Security.KeyHex)
	sanitized.Server.HTTP.AuthToken = maskSecret(sanitized.Server.HTTP.AuthToken)

	return &sanitized
}

// maskSecret masks a secret value for safe logging. Empty stays empty.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
