// Package config holds the pointerd-cli profile (~/.pointerd/cli.yaml).
//
// The profile supplies defaults for the control API endpoint and for the
// stream settings used by "listen". Values are read with confloader, so
// POINTERD_CLI_* environment variables override the file and command-line
// flags override both.
package config
