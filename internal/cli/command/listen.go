package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/internal/cli/config"
	"github.com/yndnr/pointerd/internal/cli/output"
	"github.com/yndnr/pointerd/internal/client"
	"github.com/yndnr/pointerd/internal/protocol"
	serverconfig "github.com/yndnr/pointerd/internal/server/config"
	"github.com/yndnr/pointerd/pkg/crypto/cbc"
	"github.com/yndnr/pointerd/pkg/crypto/kdf"
)

// ListenCommand returns the listen command.
func ListenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Open a pointer session and print the events the server streams",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "server UDP address (host:port)",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "shared password",
				EnvVars: []string{"POINTERD_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "key-hex",
				Usage:   "hex-encoded AES key (instead of --password)",
				EnvVars: []string{"POINTERD_KEY_HEX"},
			},
			&cli.StringFlag{
				Name:  "kdf",
				Usage: "password key derivation: sha256 or argon2id",
			},
			&cli.StringFlag{
				Name:  "salt",
				Usage: "argon2id salt",
			},
			&cli.IntFlag{
				Name:  "packet-size",
				Usage: "datagram size, must match the server",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "reply timeout, also the heartbeat interval",
			},
			&cli.IntFlag{
				Name:  "max-refresh",
				Usage: "unanswered heartbeats before the session is reopened",
			},
			&cli.BoolFlag{
				Name:  "lenient-padding",
				Usage: "accept non-canonical padding",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "exit after this many events (0 = unlimited)",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "exit after this long (0 = until interrupted)",
			},
		},
		Action: listen,
	}
}

// streamSettings overlays the listen flags on the profile.
func streamSettings(c *cli.Context) config.StreamConfig {
	s := Profile(c).Stream
	if c.IsSet("server") {
		s.Server = c.String("server")
	}
	if c.IsSet("password") {
		s.Password = c.String("password")
		s.KeyHex = ""
	}
	if c.IsSet("key-hex") {
		s.KeyHex = c.String("key-hex")
		s.Password = ""
	}
	if c.IsSet("kdf") {
		s.KDF = c.String("kdf")
	}
	if c.IsSet("salt") {
		s.Salt = c.String("salt")
	}
	if c.IsSet("packet-size") {
		s.PacketSize = c.Int("packet-size")
	}
	if c.IsSet("timeout") {
		s.Timeout = c.Duration("timeout")
	}
	if c.IsSet("max-refresh") {
		s.MaxRefresh = c.Int("max-refresh")
	}
	if c.IsSet("lenient-padding") {
		s.LenientPadding = c.Bool("lenient-padding")
	}
	return s
}

// newStreamCodec builds the datagram codec for the stream settings.
func newStreamCodec(s config.StreamConfig) (*protocol.Codec, error) {
	if (s.Password == "") == (s.KeyHex == "") {
		return nil, errors.New("exactly one of --password or --key-hex is required")
	}
	key, err := serverconfig.DeriveKey(&serverconfig.SecuritySection{
		Password: s.Password,
		KeyHex:   s.KeyHex,
		KDF:      s.KDF,
		Salt:     s.Salt,
	})
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer kdf.ZeroKey(key)

	var opts []cbc.Option
	if s.LenientPadding {
		opts = append(opts, cbc.WithLenientPadding())
	}
	return protocol.NewCodecForPacket(key, s.PacketSize, opts...)
}

func listen(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	s := streamSettings(c)
	codec, err := newStreamCodec(s)
	if err != nil {
		return err
	}

	cl, err := client.Dial(client.Config{
		Server:     s.Server,
		Timeout:    s.Timeout,
		MaxRefresh: s.MaxRefresh,
	}, codec, protocol.MustDefaultVocabulary(), newLogger(c))
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	spinner := output.NewSpinner(errWriter(c), "opening session with "+s.Server)
	spinner.Start()
	if err := cl.Open(ctx); err != nil {
		if ctx.Err() != nil {
			spinner.Stop()
			return nil
		}
		spinner.Fail("open failed")
		return err
	}
	spinner.Success("session open with " + s.Server)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emit := newEventPrinter(outWriter(c), flags.Output)
	limit, seen := c.Int("count"), 0
	return cl.Listen(ctx, func(ev client.Event) {
		if err := emit(ev); err != nil {
			cancel()
			return
		}
		seen++
		if limit > 0 && seen >= limit {
			cancel()
		}
	})
}

// eventView is the machine-readable form of an event.
type eventView struct {
	Kind  string `json:"kind"`
	Seq   uint32 `json:"seq"`
	DX    int    `json:"dx,omitempty"`
	DY    int    `json:"dy,omitempty"`
	Click string `json:"click,omitempty"`
}

func viewOf(ev client.Event) eventView {
	v := eventView{Kind: ev.Kind.String(), Seq: ev.Seq}
	switch ev.Kind {
	case protocol.KindMove:
		v.DX, v.DY = ev.DX, ev.DY
	case protocol.KindClick:
		v.Click = ev.Click.String()
	}
	return v
}

// newEventPrinter returns a function writing one event per line (JSON),
// per document (YAML) or as text.
func newEventPrinter(w io.Writer, format output.Format) func(client.Event) error {
	switch format {
	case output.FormatJSON:
		enc := json.NewEncoder(w)
		return func(ev client.Event) error { return enc.Encode(viewOf(ev)) }
	case output.FormatYAML:
		f := &output.YAMLFormatter{}
		return func(ev client.Event) error {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
			return f.Format(w, viewOf(ev))
		}
	default:
		return func(ev client.Event) error {
			_, err := fmt.Fprintf(w, "seq=%d %s\n", ev.Seq, ev)
			return err
		}
	}
}
