package command

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/internal/cli/connection"
	"github.com/yndnr/pointerd/internal/cli/output"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/server/httpserver/handler"
)

// controller drives the control API and renders the replies. It backs
// both the one-shot commands and the console.
type controller struct {
	client *connection.HTTPClient
	out    io.Writer
	format output.Format
	wide   bool
}

func newController(c *cli.Context) (*controller, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return nil, err
	}
	return &controller{
		client: client,
		out:    outWriter(c),
		format: flags.Output,
		wide:   flags.Wide,
	}, nil
}

// print renders data in the selected format, or text when the format
// is table and text is not empty.
func (k *controller) print(data any, text string) error {
	if k.format == output.FormatTable && text != "" {
		_, err := fmt.Fprintln(k.out, text)
		return err
	}
	return output.NewFormatter(k.format, k.wide).Format(k.out, data)
}

func (k *controller) move(ctx context.Context, dx, dy int) error {
	var resp handler.MoveResponse
	if err := callWith(ctx, k.client, "/v1/pointer/move", handler.MoveRequest{DX: dx, DY: dy}, &resp); err != nil {
		return err
	}
	return k.print(resp, fmt.Sprintf("moved dx=%d dy=%d", resp.DX, resp.DY))
}

func (k *controller) click(ctx context.Context, name string) error {
	kind, err := protocol.ParseClickKind(name)
	if err != nil {
		return fmt.Errorf("%w (want one of %s)", err, clickNames())
	}

	var resp handler.ClickResponse
	if err := callWith(ctx, k.client, "/v1/pointer/click", handler.ClickRequest{Kind: kind.String()}, &resp); err != nil {
		return err
	}
	return k.print(resp, fmt.Sprintf("sent %s to %d session(s)", resp.Kind, resp.Sessions))
}

func (k *controller) sessions(ctx context.Context) error {
	var resp handler.ListSessionsResponse
	if err := callWith(ctx, k.client, "/v1/sessions", nil, &resp); err != nil {
		return err
	}
	if k.format == output.FormatTable {
		if resp.Total == 0 {
			_, err := fmt.Fprintln(k.out, "No sessions")
			return err
		}
		return output.NewFormatter(k.format, k.wide).Format(k.out, resp.Items)
	}
	return k.print(resp, "")
}

// probe queries /health or /ready.
func (k *controller) probe(ctx context.Context, path string) error {
	var resp handler.HealthResponse
	if err := callWith(ctx, k.client, path, nil, &resp); err != nil {
		return err
	}
	text := fmt.Sprintf("✓ %s  target=%s  listen=%s  sessions=%d  version=%s",
		resp.Status, k.client.BaseURL(), pick(resp.Listen, "-"), resp.Sessions, resp.Build.Version)
	return k.print(resp, text)
}

// consoleCommands are the commands Execute understands.
var consoleCommands = []string{"move", "click", "sessions", "health", "ready"}

// Execute runs one console command line.
func (k *controller) Execute(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, connection.DefaultTimeout)
	defer cancel()

	switch args[0] {
	case "move":
		if len(args) != 3 {
			return fmt.Errorf("usage: move DX DY")
		}
		dx, dy, err := parseDelta(args[1], args[2])
		if err != nil {
			return err
		}
		return k.move(ctx, dx, dy)
	case "click":
		if len(args) != 2 {
			return fmt.Errorf("usage: click KIND (one of %s)", clickNames())
		}
		return k.click(ctx, args[1])
	case "sessions":
		return k.sessions(ctx)
	case "health":
		return k.probe(ctx, "/health")
	case "ready":
		return k.probe(ctx, "/ready")
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func parseDelta(x, y string) (int, int, error) {
	dx, err := strconv.Atoi(x)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid DX %q", x)
	}
	dy, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid DY %q", y)
	}
	return dx, dy, nil
}

func clickNames() string {
	var names []string
	for _, k := range protocol.ClickKinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
