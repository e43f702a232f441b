package command

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/internal/cli/repl"
)

// ConsoleCommand returns the interactive console command.
func ConsoleCommand() *cli.Command {
	return &cli.Command{
		Name:  "console",
		Usage: "Interactive control console (move, click, sessions, health, ready)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "history file (default: ~/.pointerd/history, \"-\" disables)",
			},
		},
		Action: console,
	}
}

func console(c *cli.Context) error {
	k, err := newController(c)
	if err != nil {
		return err
	}

	file := pick(c.String("history"), repl.DefaultHistoryFile())
	if file == "-" {
		file = ""
	}

	r := repl.New(k, consoleCommands,
		repl.WithIO(inReader(c), k.out),
		repl.WithHistory(repl.NewHistory(file, repl.DefaultHistorySize)),
	)
	return r.Run(c.Context)
}

func inReader(c *cli.Context) io.Reader {
	if c.App != nil && c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}
