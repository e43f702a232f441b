package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// MoveCommand returns the move command.
func MoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Queue relative pointer movement on the server",
		ArgsUsage: "DX DY  (use -- before negative values)",
		Action:    pointerMove,
	}
}

// ClickCommand returns the click command.
func ClickCommand() *cli.Command {
	return &cli.Command{
		Name:      "click",
		Usage:     "Send a click to every open session",
		ArgsUsage: "KIND  (" + clickNames() + ")",
		Action:    pointerClick,
	}
}

func pointerMove(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("move requires DX and DY")
	}
	dx, dy, err := parseDelta(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}

	k, err := newController(c)
	if err != nil {
		return err
	}
	return k.move(c.Context, dx, dy)
}

func pointerClick(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("click requires KIND (one of %s)", clickNames())
	}

	k, err := newController(c)
	if err != nil {
		return err
	}
	return k.click(c.Context, c.Args().First())
}
