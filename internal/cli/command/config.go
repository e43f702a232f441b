package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"go.yaml.in/yaml/v3"

	"github.com/yndnr/pointerd/internal/cli/config"
	"github.com/yndnr/pointerd/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI profile commands",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective profile (secrets masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the profile path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write a default profile",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing profile",
					},
				},
				Action: configInit,
			},
		},
	}
}

func profilePath(c *cli.Context) string {
	return pick(c.String("config"), config.DefaultConfigPath())
}

func configShow(c *cli.Context) error {
	cfg := *Profile(c)
	cfg.API.Token = mask(cfg.API.Token)
	cfg.Stream.Password = mask(cfg.Stream.Password)
	cfg.Stream.KeyHex = mask(cfg.Stream.KeyHex)

	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	if flags.Output == output.FormatJSON {
		return (&output.JSONFormatter{}).Format(outWriter(c), cfg)
	}

	// The profile is nested, so table output is rendered as YAML too.
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = outWriter(c).Write(data)
	return err
}

func configPath(c *cli.Context) error {
	_, err := fmt.Fprintln(outWriter(c), profilePath(c))
	return err
}

func configInit(c *cli.Context) error {
	path := profilePath(c)
	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	_, err := fmt.Fprintf(outWriter(c), "wrote %s\n", path)
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
