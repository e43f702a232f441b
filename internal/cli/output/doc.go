// Package output renders pointerd-cli results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned text tables, with wide-only columns
//   - json.go, yaml.go: machine-readable output
//   - spinner.go: progress animation while waiting on the server
package output
