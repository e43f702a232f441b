package command

import "github.com/urfave/cli/v2"

// SessionsCommand returns the sessions command.
func SessionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"ls"},
		Usage:   "List the server's pointer sessions",
		Action: func(c *cli.Context) error {
			k, err := newController(c)
			if err != nil {
				return err
			}
			return k.sessions(c.Context)
		},
	}
}
