// Package client implements the pointer protocol from the receiving side.
//
// A Client opens a session with a pointerd host, decodes the movement and
// click frames the host pushes, and keeps the session alive with
// heartbeats. It is used by pointerd-cli and by end-to-end tests.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/protocol"
)

// Defaults for Config fields left zero.
const (
	DefaultTimeout         = time.Second
	DefaultMaxRefresh      = 5
	maxReceiveDatagramSize = 2048
)

// ErrTimeout is returned when no reply arrived within the configured
// timeout.
var ErrTimeout = errors.New("client: timed out waiting for server")

// Config holds client settings.
type Config struct {
	// Server is the host's UDP address (host:port).
	Server string
	// Timeout is how long to wait for each reply (default: 1s).
	Timeout time.Duration
	// MaxRefresh is the number of unanswered heartbeats before the session
	// is reopened (default: 5).
	MaxRefresh int
	// OpenAttempts bounds open retries. Zero retries until ctx is done.
	OpenAttempts int
}

// Event is one decoded frame pushed by the host.
type Event struct {
	Kind    protocol.Kind
	Seq     uint32
	DX, DY  int
	Click   protocol.ClickKind
	Payload []byte
}

// String renders an event for display.
func (e Event) String() string {
	switch e.Kind {
	case protocol.KindMove:
		return fmt.Sprintf("move dx=%d dy=%d", e.DX, e.DY)
	case protocol.KindClick:
		return "click " + e.Click.String()
	default:
		return fmt.Sprintf("%s %q", e.Kind, e.Payload)
	}
}

// Client is a single protocol session. It is not safe for concurrent use.
type Client struct {
	cfg    Config
	conn   *net.UDPConn
	codec  *protocol.Codec
	vocab  *protocol.Vocabulary
	logger *slog.Logger

	seq     uint32
	opened  bool
	pending []Event
	buf     []byte
}

// Dial resolves cfg.Server and connects a UDP socket to it. Nothing is
// sent until Open.
func Dial(cfg Config, codec *protocol.Codec, vocab *protocol.Vocabulary, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRefresh <= 0 {
		cfg.MaxRefresh = DefaultMaxRefresh
	}
	if logger == nil {
		logger = slog.Default()
	}

	raddr, err := net.ResolveUDPAddr("udp", cfg.Server)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("server " + cfg.Server).WithCause(err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, domain.ErrTransport.WithDetails("dial " + cfg.Server).WithCause(err)
	}

	return &Client{
		cfg:    cfg,
		conn:   conn,
		codec:  codec,
		vocab:  vocab,
		logger: logger.With("server", raddr.String()),
		buf:    make([]byte, maxReceiveDatagramSize),
	}, nil
}

// LocalAddr returns the client socket address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Sequence returns the last sequence number sent or accepted.
func (c *Client) Sequence() uint32 {
	return c.seq
}

// Open sends the open request and waits for the acknowledgement,
// retrying on timeout.
func (c *Client) Open(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.seq = 0
		c.pending = nil
		if err := c.send(c.vocab.OpenRequest()); err != nil {
			return err
		}

		err := c.await(ctx, func(msg protocol.WireMessage) bool {
			return msg.Seq == 1 && c.vocab.Classify(msg.Payload) == protocol.KindOpenAck
		})
		if err == nil {
			c.seq = 1
			c.opened = true
			c.logger.Info("session opened")
			return nil
		}
		if !errors.Is(err, ErrTimeout) {
			return err
		}
		if c.cfg.OpenAttempts > 0 && attempt >= c.cfg.OpenAttempts {
			return fmt.Errorf("open after %d attempts: %w", attempt, err)
		}
		c.logger.Debug("open timed out, retrying", "attempt", attempt)
	}
}

// Heartbeat sends a heartbeat and waits for the acknowledgement. The
// acknowledgement's sequence number is adopted. Movement and click frames
// received meanwhile are kept for Receive.
func (c *Client) Heartbeat(ctx context.Context) error {
	c.seq = nextSeq(c.seq)
	if err := c.send(c.vocab.HeartbeatRequest()); err != nil {
		return err
	}
	return c.await(ctx, func(msg protocol.WireMessage) bool {
		if !c.fresh(msg.Seq) {
			return false
		}
		c.seq = msg.Seq
		if c.vocab.Classify(msg.Payload) == protocol.KindHeartbeatAck {
			return true
		}
		if ev, ok := c.event(msg); ok {
			c.pending = append(c.pending, ev)
		}
		return false
	})
}

// Receive returns the next movement or click frame. Stale and
// unrecognised frames are skipped. It returns ErrTimeout when nothing
// arrives within the configured timeout.
func (c *Client) Receive(ctx context.Context) (Event, error) {
	if len(c.pending) > 0 {
		ev := c.pending[0]
		c.pending = c.pending[1:]
		return ev, nil
	}

	var ev Event
	err := c.await(ctx, func(msg protocol.WireMessage) bool {
		if !c.fresh(msg.Seq) {
			c.logger.Debug("stale frame dropped", "seq", msg.Seq, "current", c.seq)
			return false
		}
		c.seq = msg.Seq
		var ok bool
		ev, ok = c.event(msg)
		return ok
	})
	return ev, err
}

// Listen opens a session, unless Open already succeeded, and delivers
// every event to fn until ctx is done. Idle periods are filled with heartbeats; after MaxRefresh
// unanswered heartbeats the session is reopened. Listen returns nil when
// ctx is cancelled.
func (c *Client) Listen(ctx context.Context, fn func(Event)) error {
	if !c.opened {
		if err := c.Open(ctx); err != nil {
			return ignoreCancel(ctx, err)
		}
	}

	missed := 0
	for {
		ev, err := c.Receive(ctx)
		if err == nil {
			fn(ev)
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if !errors.Is(err, ErrTimeout) {
			return err
		}

		if missed >= c.cfg.MaxRefresh {
			c.logger.Warn("server unresponsive, reopening", "missed_heartbeats", missed)
			missed = 0
			if err := c.Open(ctx); err != nil {
				return ignoreCancel(ctx, err)
			}
			continue
		}

		switch err := c.Heartbeat(ctx); {
		case err == nil:
			missed = 0
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrTimeout):
			missed++
		default:
			return err
		}
	}
}

// Close sends a close request if a session is open, then closes the
// socket.
func (c *Client) Close() error {
	var sendErr error
	if c.opened {
		c.seq = nextSeq(c.seq)
		sendErr = c.send(c.vocab.CloseRequest())
		c.opened = false
	}
	return errors.Join(sendErr, c.conn.Close())
}

func (c *Client) send(msg []byte) error {
	datagram, err := c.codec.Seal(c.seq, msg)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(datagram); err != nil {
		return domain.ErrTransport.WithDetails("send").WithCause(err)
	}
	return nil
}

// await reads frames until accept returns true, the timeout elapses, or
// ctx is done. Frames that fail to decrypt are skipped.
func (c *Client) await(ctx context.Context, accept func(protocol.WireMessage) bool) error {
	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return domain.ErrTransport.WithDetails("set read deadline").WithCause(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrTimeout
			}
			return domain.ErrTransport.WithDetails("receive").WithCause(err)
		}

		msg, err := c.codec.Open(c.buf[:n])
		if err != nil {
			c.logger.Debug("undecodable frame dropped", "error", err)
			continue
		}
		if accept(msg) {
			return nil
		}
	}
}

// fresh reports whether a server sequence number is newer than ours.
func (c *Client) fresh(seq uint32) bool {
	return seq > c.seq || c.seq == math.MaxUint32
}

func (c *Client) event(msg protocol.WireMessage) (Event, bool) {
	ev := Event{Seq: msg.Seq, Payload: msg.Payload}
	switch kind := c.vocab.Classify(msg.Payload); kind {
	case protocol.KindMove:
		dx, dy, err := c.vocab.ParseMove(msg.Payload)
		if err != nil {
			c.logger.Debug("malformed move dropped", "payload", string(msg.Payload), "error", err)
			return Event{}, false
		}
		ev.Kind, ev.DX, ev.DY = kind, dx, dy
	case protocol.KindClick:
		click, _ := c.vocab.ParseClick(msg.Payload)
		ev.Kind, ev.Click = kind, click
	default:
		return Event{}, false
	}
	return ev, true
}

func nextSeq(seq uint32) uint32 {
	return seq + 1
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
