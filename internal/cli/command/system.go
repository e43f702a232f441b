package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/internal/infra/buildinfo"
)

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check server health",
		Action: probeAction("/health"),
	}
}

// ReadyCommand returns the ready command.
func ReadyCommand() *cli.Command {
	return &cli.Command{
		Name:   "ready",
		Usage:  "Check that the server's UDP listener is bound",
		Action: probeAction("/ready"),
	}
}

func probeAction(path string) cli.ActionFunc {
	return func(c *cli.Context) error {
		k, err := newController(c)
		if err != nil {
			return err
		}
		return k.probe(c.Context, path)
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			flags, err := ParseGlobalFlags(c)
			if err != nil {
				return err
			}
			k := &controller{out: outWriter(c), format: flags.Output}
			return k.print(buildinfo.Get(), fmt.Sprintf("pointerd-cli %s", buildinfo.String()))
		},
	}
}
