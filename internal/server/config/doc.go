// Package config provides server configuration for pointerd.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Range and consistency checks
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - convert.go: Mapping onto component configurations
//
// Configuration is loaded via internal/infra/confloader and supports
// files, environment variables and flags.
package config
