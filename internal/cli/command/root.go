package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/internal/cli/config"
	"github.com/yndnr/pointerd/internal/cli/connection"
	"github.com/yndnr/pointerd/internal/cli/output"
	"github.com/yndnr/pointerd/internal/infra/buildinfo"
	"github.com/yndnr/pointerd/internal/infra/tlsroots"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
)

const profileKey = "profile"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pointerd-cli",
		Usage:   "pointerd stream client and control tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ListenCommand(),
			MoveCommand(),
			ClickCommand(),
			SessionsCommand(),
			HealthCommand(),
			ReadyCommand(),
			ConsoleCommand(),
			ConfigCommand(),
			TokenCommand(),
			VersionCommand(),
		},
		Before: loadProfile,
	}
}

// globalFlags returns the global CLI flags. Empty values fall back to
// the profile.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI profile path (default: ~/.pointerd/cli.yaml)",
			EnvVars: []string{"POINTERD_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "api",
			Aliases: []string{"a"},
			Usage:   "control API address (e.g., http://127.0.0.1:10880)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "control API bearer token",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle trusted for an https control API",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

func loadProfile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[profileKey] = cfg
	return nil
}

// Profile returns the loaded CLI profile, or the defaults when none was
// loaded.
func Profile(c *cli.Context) *config.CLIConfig {
	if c.App != nil {
		if cfg, ok := c.App.Metadata[profileKey].(*config.CLIConfig); ok {
			return cfg
		}
	}
	return config.Default()
}

// GlobalFlags holds the global flags merged over the profile.
type GlobalFlags struct {
	API     string
	Token   string
	TLS     tlsroots.Files
	Output  output.Format
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	profile := Profile(c)
	format, err := output.ParseFormat(pick(c.String("output"), profile.Output))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		API:   pick(c.String("api"), profile.API.Addr),
		Token: pick(c.String("token"), profile.API.Token),
		TLS: tlsroots.Files{
			CAFile:   pick(c.String("ca-file"), profile.API.CAFile),
			CertFile: profile.API.CertFile,
			KeyFile:  profile.API.KeyFile,
		},
		Output:  format,
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}, nil
}

// EnsureConnected returns a control API client for the configured
// server.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	tlsConfig, err := tlsroots.ClientConfig(flags.TLS)
	if err != nil {
		return nil, fmt.Errorf("control API TLS: %w", err)
	}
	return connection.NewHTTPClient(flags.API, flags.Token, connection.WithTLSConfig(tlsConfig)), nil
}

// callWith performs one control API request and decodes the response
// data into target. A nil body issues a GET.
func callWith(ctx context.Context, client *connection.HTTPClient, path string, body, target any) error {
	var (
		resp *http.Response
		err  error
	)
	if body == nil {
		resp, err = client.Get(ctx, path)
	} else {
		resp, err = client.Post(ctx, path, body)
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return connection.ParseResponse(resp, target)
}

// printResult writes data to the app's writer in the selected format.
func printResult(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(outWriter(c), data)
}

// newLogger builds the diagnostic logger written to stderr.
func newLogger(c *cli.Context) *slog.Logger {
	cfg := logger.DefaultConfig()
	cfg.Format = "text"
	cfg.Level = "warn"
	if c.Bool("verbose") {
		cfg.Level = "debug"
	}
	cfg.Output = errWriter(c)

	l, err := logger.New(cfg)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func outWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
