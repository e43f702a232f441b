// Package repl provides the interactive console of pointerd-cli.
//
//   - repl.go: read-eval-print loop, built-in commands, dispatch
//   - completer.go: command-name completion and suggestions
//   - history.go: command history persisted between runs
package repl
