// Package command provides the pointerd-cli commands, built on
// urfave/cli/v2:
//
//   - root.go: application, global flags, profile and output helpers
//   - listen.go: receive a pointer stream over UDP
//   - pointer.go: inject movement and clicks through the control API
//   - session.go: list the server's sessions
//   - system.go: health and readiness probes, version
//   - config.go: show and initialize the CLI profile
//   - console.go: interactive control console
//   - token.go: generate control API bearer tokens
package command
