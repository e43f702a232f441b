// Package main provides the entry point for pointerd-cli.
//
// pointerd-cli receives pointer streams from a pointerd-server over UDP
// and drives the server's HTTP control API, either one command at a time
// or from an interactive console.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/pointerd/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
