package udpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/core/session"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
)

// maxDatagramSize is the largest UDP payload.
const maxDatagramSize = 64 << 10

// minReapInterval bounds how often idle sessions are checked.
const minReapInterval = 10 * time.Millisecond

var (
	// ErrServerClosed is returned by Serve after Shutdown.
	ErrServerClosed = errors.New("udpserver: server closed")

	// ErrAlreadyServing is returned by a second call to Serve.
	ErrAlreadyServing = errors.New("udpserver: already serving")
)

// Config holds the dispatcher configuration.
type Config struct {
	// ListenAddr is the UDP address for ListenAndServe.
	ListenAddr string
	// UpdateInterval is the session send-timer period (default: 50ms).
	UpdateInterval time.Duration
	// IdleTimeout stops sessions with no accepted datagram for this long.
	// Zero disables reaping.
	IdleTimeout time.Duration
	// RateLimit is the number of datagrams per second accepted from one
	// source IP. Zero disables rate limiting.
	RateLimit int
	// Sensitivity scales outbound movement. Nil means 1.
	Sensitivity *pointer.Sensitivity
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     "0.0.0.0:10888",
		UpdateInterval: session.DefaultUpdateInterval,
		RateLimit:      200,
	}
}

// SourceProvider hands out one movement source per session.
// *pointer.Hub implements it.
type SourceProvider interface {
	Open() (pointer.Source, func())
}

// PacketConn is the socket the dispatcher reads from and sessions write
// to. *net.UDPConn implements it.
type PacketConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// Server is the UDP dispatcher.
type Server struct {
	cfg      *Config
	codec    *protocol.Codec
	vocab    *protocol.Vocabulary
	source   SourceProvider
	logger   *slog.Logger
	metrics  *metric.Registry
	registry *session.Registry
	limiters *limiterTable

	mu       sync.Mutex
	conn     PacketConn
	running  atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup
	lastReap time.Time
}

// New creates a dispatcher. A nil metrics registry disables metrics.
func New(cfg *Config, codec *protocol.Codec, vocab *protocol.Vocabulary, source SourceProvider, logger *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		codec:    codec,
		vocab:    vocab,
		source:   source,
		logger:   logger,
		metrics:  metrics,
		registry: session.NewRegistry(),
		limiters: newLimiterTable(cfg.RateLimit),
	}

	if err := metrics.Register(metric.NewCollector(s.registry)); err != nil {
		logger.Warn("sessions gauge not registered", "error", err)
	}
	return s
}

// ListenAndServe binds cfg.ListenAddr and runs the receive loop until ctx
// is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.ListenAddr)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("listen_addr " + s.cfg.ListenAddr).WithCause(err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return domain.ErrTransport.WithDetails("listen " + s.cfg.ListenAddr).WithCause(err)
	}
	return s.Serve(ctx, conn)
}

// Serve runs the receive loop on conn and takes ownership of it. It
// returns nil after Shutdown or ctx cancellation and a transport error
// for any other receive failure. Every session is stopped on return.
func (s *Server) Serve(ctx context.Context, conn PacketConn) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrServerClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyServing
	}
	s.conn = conn
	s.running.Store(true)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("udp server listening", "address", conn.LocalAddr().String())

	stop := context.AfterFunc(ctx, func() {
		s.running.Store(false)
		_ = conn.Close()
	})
	defer stop()
	defer s.stopSessions()

	return s.readLoop(ctx, conn)
}

// Shutdown stops every session, closes the socket and waits for the
// receive loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed.Store(true)
	s.running.Store(false)
	conn := s.conn
	s.mu.Unlock()

	var firstErr error
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	// Wait for the receive loop to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.stopSessions()
		return ctx.Err()
	}

	s.stopSessions()
	return firstErr
}

// Addr returns the bound socket address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Len returns the number of registered sessions.
func (s *Server) Len() int {
	return s.registry.Len()
}

// Sessions returns a snapshot of every registered session.
func (s *Server) Sessions() []session.Info {
	snap := s.registry.Snapshot()
	out := make([]session.Info, 0, len(snap))
	for _, sess := range snap {
		out = append(out, sess.Info())
	}
	return out
}

// ExecuteClick sends a click to every live session. A failure for one
// client does not stop delivery to the others; all failures are joined.
func (s *Server) ExecuteClick(kind protocol.ClickKind) error {
	if _, err := s.vocab.ClickMessage(kind); err != nil {
		return domain.ErrInvalidArgument.WithDetails(kind.String()).WithCause(err)
	}

	var errs []error
	s.registry.Each(func(sess *session.Session) bool {
		if !sess.Running() || !sess.HasReplyAddr() {
			return true
		}
		if err := sess.ExecuteClick(kind); err != nil && !errors.Is(err, session.ErrStopped) {
			s.logger.Error("click delivery failed", "session_id", sess.ID(), "client", sess.ReplyAddr().String(), "error", err)
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID(), err))
		}
		return true
	})
	return errors.Join(errs...)
}

func (s *Server) readLoop(ctx context.Context, conn PacketConn) error {
	buf := make([]byte, maxDatagramSize)
	s.lastReap = time.Now()

	for {
		if s.cfg.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.reapInterval())); err != nil && s.running.Load() {
				return domain.ErrTransport.WithDetails("set read deadline").WithCause(err)
			}
		}

		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.reap(time.Now())
				continue
			}
			s.logger.Error("udp receive failed", "error", err)
			return domain.ErrTransport.WithDetails("receive").WithCause(err)
		}

		if err := s.handle(ctx, buf[:n], from); err != nil {
			if errors.Is(err, domain.ErrTransport) {
				s.logger.Error("reply failed", "client", from.String(), "error", err)
			} else {
				s.logger.Debug("datagram dropped", "client", from.String(), "error", err)
			}
		}

		if s.cfg.IdleTimeout > 0 && time.Since(s.lastReap) >= s.reapInterval() {
			s.reap(time.Now())
		}
	}
}

// handle decrypts and routes one datagram.
func (s *Server) handle(ctx context.Context, data []byte, from netip.AddrPort) error {
	key := session.KeyOf(from)
	if !s.limiters.Allow(key) {
		s.metrics.DatagramReceived(metric.ResultRateLimited)
		return domain.ErrRateLimited.WithDetails(key.String())
	}

	msg, err := s.codec.Open(data)
	if err == nil {
		switch kind := s.vocab.Classify(msg.Payload); kind {
		case protocol.KindOpen:
			err = s.handleOpen(ctx, msg, from)
		case protocol.KindHeartbeat:
			err = s.handleHeartbeat(msg, key)
		case protocol.KindClose:
			err = s.handleClose(msg, key)
		default:
			err = domain.ErrUnknownMessage.WithDetails(fmt.Sprintf("%s seq=%d", kind, msg.Seq))
		}
	}

	s.metrics.DatagramReceived(resultOf(err))
	return err
}

func (s *Server) handleOpen(ctx context.Context, msg protocol.WireMessage, from netip.AddrPort) error {
	if msg.Seq != 0 {
		return domain.ErrOpenSequence.WithDetails(fmt.Sprintf("seq=%d", msg.Seq))
	}

	src, release := s.source.Open()
	sess, err := session.New(from, session.Config{
		UpdateInterval: s.cfg.UpdateInterval,
		Sensitivity:    s.cfg.Sensitivity,
	}, session.Deps{
		Writer:     s.conn,
		Sealer:     s.codec,
		Vocabulary: s.vocab,
		Source:     src,
		Logger:     s.logger,
		Metrics:    s.metrics,
		OnExit:     release,
	})
	if err != nil {
		release()
		return err
	}

	if old := s.registry.Register(sess); old != nil {
		s.metrics.SessionClosed(metric.ReasonSuperseded)
		s.logger.Info("session superseded", "session_id", old.ID(), "client", old.ReplyAddr().String(), "successor", sess.ID())
	}
	s.metrics.SessionOpened()

	if err := sess.Start(ctx); err != nil {
		s.evict(sess, metric.ReasonTransport)
		return err
	}
	return nil
}

func (s *Server) handleHeartbeat(msg protocol.WireMessage, key netip.Addr) error {
	sess, ok := s.lookupLive(key)
	if !ok {
		return domain.ErrNoSession.WithDetails(key.String())
	}
	if !sess.AdvanceSequence(msg.Seq) {
		return domain.ErrStaleSequence.WithDetails(fmt.Sprintf("heartbeat seq=%d current=%d", msg.Seq, sess.Sequence()))
	}
	sess.Touch()

	if err := sess.SendHeartbeatAck(); err != nil {
		s.evict(sess, metric.ReasonTransport)
		if errors.Is(err, session.ErrStopped) {
			return domain.ErrNoSession.WithDetails(key.String())
		}
		return err
	}
	return nil
}

func (s *Server) handleClose(msg protocol.WireMessage, key netip.Addr) error {
	sess, ok := s.lookupLive(key)
	if !ok {
		return domain.ErrNoSession.WithDetails(key.String())
	}
	if msg.Seq <= sess.Sequence() {
		return domain.ErrStaleSequence.WithDetails(fmt.Sprintf("close seq=%d current=%d", msg.Seq, sess.Sequence()))
	}
	s.evict(sess, metric.ReasonClient)
	return nil
}

// lookupLive returns the running session for key. A session whose loop
// has died is evicted and reported as absent.
func (s *Server) lookupLive(key netip.Addr) (*session.Session, bool) {
	sess, ok := s.registry.Lookup(key)
	if !ok {
		return nil, false
	}
	if !sess.Running() {
		s.evict(sess, metric.ReasonTransport)
		return nil, false
	}
	return sess, true
}

func (s *Server) evict(sess *session.Session, reason string) {
	if !s.registry.Evict(sess) {
		return
	}
	s.metrics.SessionClosed(reason)
	s.logger.Info("session closed", "session_id", sess.ID(), "client", sess.ReplyAddr().String(), "reason", reason)
}

// reap evicts dead sessions and those idle for longer than IdleTimeout.
func (s *Server) reap(now time.Time) {
	s.lastReap = now
	for _, sess := range s.registry.Snapshot() {
		switch {
		case !sess.Running():
			s.evict(sess, metric.ReasonTransport)
		case now.Sub(sess.LastSeen()) >= s.cfg.IdleTimeout:
			s.evict(sess, metric.ReasonIdle)
		}
	}
}

func (s *Server) reapInterval() time.Duration {
	return max(s.cfg.IdleTimeout/4, minReapInterval)
}

func (s *Server) stopSessions() {
	n := s.registry.StopAll()
	for range n {
		s.metrics.SessionClosed(metric.ReasonShutdown)
	}
	if n > 0 {
		s.logger.Info("sessions stopped", "count", n)
	}
}

// resultOf maps a handling error to a datagram metric result.
func resultOf(err error) string {
	if err == nil {
		return metric.ResultAccepted
	}
	code := domain.GetErrorCode(err)
	switch {
	case code == domain.ErrRateLimited.Code:
		return metric.ResultRateLimited
	case strings.HasPrefix(code, "PD-FRAME-"):
		return metric.ResultMalformed
	case strings.HasPrefix(code, "PD-CRYPTO-"):
		return metric.ResultCrypto
	case strings.HasPrefix(code, "PD-PROTO-"):
		return metric.ResultProtocol
	default:
		return metric.ResultAccepted
	}
}
