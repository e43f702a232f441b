package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
)

// DefaultUpdateInterval is the ticker period when Config leaves it zero.
const DefaultUpdateInterval = 50 * time.Millisecond

// Frame kinds used for metrics and logs.
const (
	FrameOpenAck      = "open_ack"
	FrameHeartbeatAck = "heartbeat_ack"
	FrameMove         = "move"
	FrameClick        = "click"
)

var (
	// ErrStopped is returned by sends on a stopped session.
	ErrStopped = errors.New("session: stopped")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session: already started")
)

// State is a session lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PacketWriter sends one datagram. *net.UDPConn implements it.
type PacketWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// Sealer frames and encrypts one message. *protocol.Codec implements it.
type Sealer interface {
	Seal(seq uint32, msg []byte) ([]byte, error)
}

// Config holds per-session tunables.
type Config struct {
	UpdateInterval time.Duration
	Sensitivity    *pointer.Sensitivity
}

// Deps are the collaborators a Session sends through.
type Deps struct {
	Writer     PacketWriter
	Sealer     Sealer
	Vocabulary *protocol.Vocabulary
	Source     pointer.Source
	Logger     *slog.Logger
	Metrics    *metric.Registry

	// OnExit runs once after the session can no longer send.
	OnExit func()
}

// Info is a point-in-time view of a session.
type Info struct {
	ID        string    `json:"id"`
	Client    string    `json:"client"`
	ReplyAddr string    `json:"reply_addr"`
	Sequence  uint32    `json:"sequence"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Session is one client's pointer stream.
type Session struct {
	id        string
	key       netip.Addr
	reply     netip.AddrPort
	startedAt time.Time
	lastSeen  atomic.Int64

	cfg    Config
	deps   Deps
	logger *slog.Logger

	seq     atomic.Uint32
	running atomic.Bool
	state   atomic.Int32
	sendMu  sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	exitOnce sync.Once
	done     chan struct{}
}

// KeyOf returns the registry key for a client address: its IP, unmapped.
func KeyOf(addr netip.AddrPort) netip.Addr {
	return addr.Addr().Unmap()
}

// New creates a session replying to reply. It does not send anything
// until Start.
func New(reply netip.AddrPort, cfg Config, deps Deps) (*Session, error) {
	if deps.Writer == nil || deps.Sealer == nil || deps.Vocabulary == nil || deps.Source == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("session: writer, sealer, vocabulary and source are required")
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}

	id, err := domain.GenerateSessionID()
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		id:        id,
		key:       KeyOf(reply),
		reply:     reply,
		startedAt: now,
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With("session_id", id, "client", reply.String()),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.lastSeen.Store(now.UnixNano())
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Key returns the registry key.
func (s *Session) Key() netip.Addr { return s.key }

// ReplyAddr returns the address outbound frames go to.
func (s *Session) ReplyAddr() netip.AddrPort { return s.reply }

// StartedAt returns the creation time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Sequence returns the current sequence number.
func (s *Session) Sequence() uint32 { return s.seq.Load() }

// State returns the lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Running reports whether the session may still send.
func (s *Session) Running() bool { return s.running.Load() }

// Done is closed once the session has stopped for good.
func (s *Session) Done() <-chan struct{} { return s.done }

// HasReplyAddr reports whether the reply address is usable.
func (s *Session) HasReplyAddr() bool {
	return s.reply.IsValid() && s.reply.Port() != 0
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last accepted inbound datagram.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Info returns a snapshot for the control API.
func (s *Session) Info() Info {
	return Info{
		ID:        s.id,
		Client:    s.key.String(),
		ReplyAddr: s.reply.String(),
		Sequence:  s.Sequence(),
		State:     s.State().String(),
		StartedAt: s.startedAt,
		LastSeen:  s.LastSeen(),
	}
}

// Start sends the open-ack (sequence 1) and starts the ticker goroutine.
// The session also stops when parent is cancelled.
func (s *Session) Start(parent context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStarting), int32(StateActive)) {
		if s.State() == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}

	// Stop may have landed after the transition; it flips state and
	// running under sendMu, so checking there is final.
	s.sendMu.Lock()
	if s.State() == StateStopped {
		s.sendMu.Unlock()
		s.exit()
		return ErrStopped
	}
	s.running.Store(true)
	s.sendMu.Unlock()

	if err := s.send(FrameOpenAck, s.deps.Vocabulary.OpenAck()); err != nil {
		s.Stop()
		s.exit()
		return err
	}

	stopOnParent := context.AfterFunc(parent, s.Stop)
	go s.loop(stopOnParent)

	s.logger.Info("session started", "reply_addr", s.reply.String())
	return nil
}

// Stop ends the session and is safe to call repeatedly. It does not wait
// for the ticker goroutine; use Done for that. No frame is sent once Stop
// returns.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		// An in-flight send completes first.
		s.sendMu.Lock()
		s.running.Store(false)
		prev := State(s.state.Swap(int32(StateStopped)))
		s.sendMu.Unlock()

		s.cancel()
		if prev == StateStarting {
			s.exit()
		}
	})
}

func (s *Session) exit() {
	s.exitOnce.Do(func() {
		close(s.done)
		if s.deps.OnExit != nil {
			s.deps.OnExit()
		}
	})
}

func (s *Session) loop(stopOnParent func() bool) {
	defer s.exit()
	defer stopOnParent()
	defer s.Stop()

	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.running.Load() {
			return
		}
		if err := s.tick(); err != nil {
			if errors.Is(err, ErrStopped) {
				return
			}
			s.logger.Error("session send failed, stopping", "error", err)
			return
		}
	}
}

func (s *Session) tick() error {
	dx, dy := s.deps.Source.PollRelativeDelta()
	if dx == 0 && dy == 0 {
		return nil
	}
	dx, dy = pointer.Scale(dx, dy, s.cfg.Sensitivity.Load())
	return s.send(FrameMove, s.deps.Vocabulary.MoveMessage(dx, dy))
}

// SendHeartbeatAck sends the heartbeat acknowledgement.
func (s *Session) SendHeartbeatAck() error {
	return s.send(FrameHeartbeatAck, s.deps.Vocabulary.HeartbeatAck())
}

// ExecuteClick sends the click token for kind.
func (s *Session) ExecuteClick(kind protocol.ClickKind) error {
	msg, err := s.deps.Vocabulary.ClickMessage(kind)
	if err != nil {
		return err
	}
	return s.send(FrameClick, msg)
}

// AdvanceSequence raises the sequence number to seq if seq is strictly
// greater than the current one. It reports whether it did.
func (s *Session) AdvanceSequence(seq uint32) bool {
	for {
		cur := s.seq.Load()
		if seq <= cur {
			return false
		}
		if s.seq.CompareAndSwap(cur, seq) {
			return true
		}
	}
}

// send increments the sequence number and writes one frame. A seal
// failure drops the frame and returns nil. A write failure stops the
// session and is returned as a transport error.
func (s *Session) send(kind string, msg []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.running.Load() {
		return ErrStopped
	}

	seq := s.seq.Add(1)
	datagram, err := s.deps.Sealer.Seal(seq, msg)
	if err != nil {
		s.deps.Metrics.SendError(kind)
		s.logger.Warn("dropping frame", "kind", kind, "seq", seq, "error", err)
		return nil
	}

	if _, err := s.deps.Writer.WriteToUDPAddrPort(datagram, s.reply); err != nil {
		s.deps.Metrics.SendError(kind)
		s.running.Store(false)
		s.cancel()
		return domain.ErrTransport.WithDetails(fmt.Sprintf("send %s seq=%d to %s", kind, seq, s.reply)).WithCause(err)
	}

	s.deps.Metrics.FrameSent(kind)
	s.logger.Debug("frame sent", "kind", kind, "seq", seq)
	return nil
}
