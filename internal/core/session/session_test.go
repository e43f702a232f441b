package session

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/protocol"
)

var errWrite = errors.New("write: connection refused")

// chanWriter records every datagram in write order.
type chanWriter struct {
	frames chan []byte
	fail   atomic.Bool
	writes atomic.Int32
}

func newChanWriter() *chanWriter {
	return &chanWriter{frames: make(chan []byte, 1024)}
}

func (w *chanWriter) WriteToUDPAddrPort(b []byte, _ netip.AddrPort) (int, error) {
	if w.fail.Load() {
		return 0, errWrite
	}
	w.writes.Add(1)
	w.frames <- append([]byte(nil), b...)
	return len(b), nil
}

// scriptedSource returns queued deltas, then zero.
type scriptedSource struct {
	mu     sync.Mutex
	deltas [][2]int
	polls  atomic.Int32
}

func (s *scriptedSource) PollRelativeDelta() (int, int) {
	s.polls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deltas) == 0 {
		return 0, 0
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d[0], d[1]
}

// failingSealer fails the first n seals.
type failingSealer struct {
	inner Sealer
	n     atomic.Int32
}

func (f *failingSealer) Seal(seq uint32, msg []byte) ([]byte, error) {
	if f.n.Add(-1) >= 0 {
		return nil, domain.ErrCrypto.WithDetails("generate iv")
	}
	return f.inner.Seal(seq, msg)
}

var testReply = netip.MustParseAddrPort("192.0.2.10:53012")

func testCodec(t *testing.T) *protocol.Codec {
	t.Helper()
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	codec, err := protocol.NewCodecForPacket(key, 32)
	if err != nil {
		t.Fatalf("NewCodecForPacket() error = %v", err)
	}
	return codec
}

type fixture struct {
	codec  *protocol.Codec
	writer *chanWriter
	source *scriptedSource
	deps   Deps
	cfg    Config
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		codec:  testCodec(t),
		writer: newChanWriter(),
		source: &scriptedSource{},
		cfg:    Config{UpdateInterval: interval},
	}
	f.deps = Deps{
		Writer:     f.writer,
		Sealer:     f.codec,
		Vocabulary: protocol.MustDefaultVocabulary(),
		Source:     f.source,
	}
	return f
}

func (f *fixture) newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(testReply, f.cfg, f.deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

// next decrypts the next written frame or fails after a timeout.
func (f *fixture) next(t *testing.T) protocol.WireMessage {
	t.Helper()
	select {
	case b := <-f.writer.frames:
		msg, err := f.codec.Open(b)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return protocol.WireMessage{}
	}
}

func (f *fixture) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case b := <-f.writer.frames:
		msg, _ := f.codec.Open(b)
		t.Fatalf("unexpected frame seq=%d %q", msg.Seq, msg.Payload)
	case <-time.After(d):
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(testReply, Config{}, Deps{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("New() error = %v, want ErrInvalidArgument", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t, 0)
	s := f.newSession(t)

	if s.cfg.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("UpdateInterval = %v, want %v", s.cfg.UpdateInterval, DefaultUpdateInterval)
	}
	if !domain.IsValidSessionID(s.ID()) {
		t.Errorf("ID() = %q, not a session ID", s.ID())
	}
	if s.State() != StateStarting || s.Running() || s.Sequence() != 0 {
		t.Errorf("new session = state %v running %v seq %d", s.State(), s.Running(), s.Sequence())
	}
	if s.Key() != testReply.Addr() || s.ReplyAddr() != testReply {
		t.Errorf("Key() = %v, ReplyAddr() = %v", s.Key(), s.ReplyAddr())
	}
}

func TestSession_StartSendsOpenAck(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msg := f.next(t)
	if msg.Seq != 1 || string(msg.Payload) != "OPEN-ACK" {
		t.Errorf("first frame = {%d %q}, want {1 \"OPEN-ACK\"}", msg.Seq, msg.Payload)
	}
	if s.State() != StateActive || !s.Running() {
		t.Errorf("after Start state = %v running = %v", s.State(), s.Running())
	}
	f.expectNone(t, 20*time.Millisecond)

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSession_ZeroDeltaSkip(t *testing.T) {
	f := newFixture(t, 2*time.Millisecond)
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t) // open-ack

	deadline := time.Now().Add(2 * time.Second)
	for f.source.polls.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if f.source.polls.Load() < 10 {
		t.Fatalf("source polled %d times, want at least 10", f.source.polls.Load())
	}
	f.expectNone(t, 10*time.Millisecond)
	if s.Sequence() != 1 {
		t.Errorf("Sequence() = %d after idle ticks, want 1", s.Sequence())
	}
}

func TestSession_MoveScaled(t *testing.T) {
	f := newFixture(t, 2*time.Millisecond)
	f.cfg.Sensitivity = pointer.NewSensitivity(1.5)
	f.source.deltas = [][2]int{{10, -4}, {1, 1}}
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	tests := []struct {
		seq  uint32
		want string
	}{
		{2, "M 15,-6"},
		{3, "M 1,1"},
	}
	for _, tt := range tests {
		msg := f.next(t)
		if msg.Seq != tt.seq || string(msg.Payload) != tt.want {
			t.Errorf("frame = {%d %q}, want {%d %q}", msg.Seq, msg.Payload, tt.seq, tt.want)
		}
	}
}

func TestSession_SensitivityHotSwap(t *testing.T) {
	f := newFixture(t, time.Hour)
	sens := pointer.NewSensitivity(1)
	f.cfg.Sensitivity = sens
	f.source.deltas = [][2]int{{4, 4}}
	s := f.newSession(t)

	sens.Store(2)
	s.running.Store(true)
	if err := s.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if msg := f.next(t); string(msg.Payload) != "M 8,8" {
		t.Errorf("move after hot swap = %q, want %q", msg.Payload, "M 8,8")
	}
}

func TestSession_SequenceMonotonic(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	for i := 0; i < 50; i++ {
		f.source.deltas = append(f.source.deltas, [2]int{1, 0})
	}
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SendHeartbeatAck()
		}()
		go func() {
			defer wg.Done()
			_ = s.ExecuteClick(protocol.ClickLeft)
		}()
	}
	wg.Wait()

	// Let the ticker drain the remaining deltas, then stop.
	deadline := time.Now().Add(2 * time.Second)
	for s.Sequence() < 91 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	waitDone(t, s)

	n := int(f.writer.writes.Load())
	if n < 41 {
		t.Fatalf("wrote %d frames, want at least 41", n)
	}
	for want := uint32(1); want <= uint32(n); want++ {
		if msg := f.next(t); msg.Seq != want {
			t.Fatalf("frame %d has seq %d, want %d", want, msg.Seq, want)
		}
	}
}

func TestSession_AdvanceSequence(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	tests := []struct {
		seq  uint32
		want bool
		cur  uint32
	}{
		{0, false, 1},
		{1, false, 1},
		{5, true, 5},
		{4, false, 5},
		{6, true, 6},
	}
	for _, tt := range tests {
		if got := s.AdvanceSequence(tt.seq); got != tt.want {
			t.Errorf("AdvanceSequence(%d) = %v, want %v", tt.seq, got, tt.want)
		}
		if s.Sequence() != tt.cur {
			t.Errorf("Sequence() = %d, want %d", s.Sequence(), tt.cur)
		}
	}

	if err := s.SendHeartbeatAck(); err != nil {
		t.Fatalf("SendHeartbeatAck() error = %v", err)
	}
	if msg := f.next(t); msg.Seq != 7 || string(msg.Payload) != "BEAT" {
		t.Errorf("heartbeat ack = {%d %q}, want {7 \"BEAT\"}", msg.Seq, msg.Payload)
	}
}

func TestSession_ExecuteClick(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	if err := s.ExecuteClick(protocol.ClickRightDown); err != nil {
		t.Fatalf("ExecuteClick() error = %v", err)
	}
	if msg := f.next(t); msg.Seq != 2 || string(msg.Payload) != "C_right_D" {
		t.Errorf("click = {%d %q}, want {2 \"C_right_D\"}", msg.Seq, msg.Payload)
	}

	if err := s.ExecuteClick(protocol.ClickKind(99)); !errors.Is(err, protocol.ErrUnknownClick) {
		t.Errorf("ExecuteClick(99) error = %v, want ErrUnknownClick", err)
	}
	if s.Sequence() != 2 {
		t.Errorf("Sequence() = %d after rejected click, want 2", s.Sequence())
	}
}

func TestSession_Stop(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	var exits atomic.Int32
	f.deps.OnExit = func() { exits.Add(1) }
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	s.Stop()
	s.Stop()
	waitDone(t, s)

	if s.Running() || s.State() != StateStopped {
		t.Errorf("after Stop running = %v state = %v", s.Running(), s.State())
	}
	if err := s.SendHeartbeatAck(); !errors.Is(err, ErrStopped) {
		t.Errorf("SendHeartbeatAck() after Stop error = %v, want ErrStopped", err)
	}
	if err := s.ExecuteClick(protocol.ClickLeft); !errors.Is(err, ErrStopped) {
		t.Errorf("ExecuteClick() after Stop error = %v, want ErrStopped", err)
	}
	f.source.mu.Lock()
	f.source.deltas = [][2]int{{5, 5}}
	f.source.mu.Unlock()
	f.expectNone(t, 20*time.Millisecond)

	if got := exits.Load(); got != 1 {
		t.Errorf("OnExit ran %d times, want 1", got)
	}
}

func TestSession_StopBeforeStart(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)

	s.Stop()
	waitDone(t, s)

	if err := s.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Stop error = %v, want ErrStopped", err)
	}
	f.expectNone(t, 10*time.Millisecond)
}

func TestSession_StopRacingStart(t *testing.T) {
	for i := 0; i < 200; i++ {
		f := newFixture(t, time.Millisecond)
		s := f.newSession(t)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Start(context.Background())
		}()
		s.Stop()
		sent := f.writer.writes.Load()

		wg.Wait()
		waitDone(t, s)
		if got := f.writer.writes.Load(); got != sent {
			t.Fatalf("iteration %d: %d frames written after Stop returned", i, got-sent)
		}
		if s.State() != StateStopped {
			t.Fatalf("iteration %d: State() = %v, want stopped", i, s.State())
		}
	}
}

func TestSession_ParentCancel(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	waitDone(t, s)

	if s.Running() {
		t.Error("session still running after parent cancel")
	}
}

func TestSession_StartWriteError(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.writer.fail.Store(true)
	s := f.newSession(t)

	err := s.Start(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("Start() error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, errWrite) {
		t.Errorf("Start() error = %v, want it to wrap the write error", err)
	}
	waitDone(t, s)
	if s.Running() {
		t.Error("session running after failed open-ack")
	}
}

func TestSession_TickWriteErrorEndsSession(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	f.writer.fail.Store(true)
	f.source.mu.Lock()
	f.source.deltas = [][2]int{{1, 1}}
	f.source.mu.Unlock()

	waitDone(t, s)
	if s.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
}

func TestSession_ExternalWriteErrorReturned(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.next(t)

	f.writer.fail.Store(true)
	if err := s.ExecuteClick(protocol.ClickLeft); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("ExecuteClick() error = %v, want ErrTransport", err)
	}
	waitDone(t, s)
}

func TestSession_SealErrorDropsFrame(t *testing.T) {
	f := newFixture(t, time.Hour)
	sealer := &failingSealer{inner: f.codec}
	sealer.n.Store(1)
	f.deps.Sealer = sealer
	s := f.newSession(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.expectNone(t, 10*time.Millisecond)
	if !s.Running() {
		t.Fatal("seal failure stopped the session")
	}

	if err := s.SendHeartbeatAck(); err != nil {
		t.Fatalf("SendHeartbeatAck() error = %v", err)
	}
	msg := f.next(t)
	if string(msg.Payload) != "BEAT" || msg.Seq <= 1 {
		t.Errorf("frame after dropped seal = {%d %q}", msg.Seq, msg.Payload)
	}
}

func TestSession_Info(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := f.newSession(t)
	before := s.LastSeen()
	time.Sleep(2 * time.Millisecond)
	s.Touch()

	info := s.Info()
	if info.ID != s.ID() || info.Client != "192.0.2.10" || info.ReplyAddr != "192.0.2.10:53012" {
		t.Errorf("Info() = %+v", info)
	}
	if info.State != "starting" {
		t.Errorf("Info().State = %q, want starting", info.State)
	}
	if !info.LastSeen.After(before) {
		t.Errorf("Touch() did not advance LastSeen")
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.0.2.1:1000", "192.0.2.1"},
		{"[::ffff:192.0.2.1]:2000", "192.0.2.1"},
		{"[2001:db8::1]:3000", "2001:db8::1"},
	}
	for _, tt := range tests {
		got := KeyOf(netip.MustParseAddrPort(tt.addr))
		if got.String() != tt.want {
			t.Errorf("KeyOf(%s) = %s, want %s", tt.addr, got, tt.want)
		}
	}
}

func TestSession_HasReplyAddr(t *testing.T) {
	f := newFixture(t, time.Hour)
	s, err := New(netip.AddrPortFrom(testReply.Addr(), 0), f.cfg, f.deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()
	if s.HasReplyAddr() {
		t.Error("HasReplyAddr() = true for port 0")
	}
	if !f.newSession(t).HasReplyAddr() {
		t.Error("HasReplyAddr() = false for a full address")
	}
}
