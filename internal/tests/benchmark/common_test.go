package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"runtime"
	"testing"

	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/core/session"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/pkg/crypto/kdf"
)

// SessionCounts defines the session counts for benchmarking.
var SessionCounts = []int{100, 1000, 5000, 10000, 50000}

// SmallSessionCounts for quick benchmarks.
var SmallSessionCounts = []int{10, 100, 1000}

// PacketSizes covers the default packet and a few larger ones.
var PacketSizes = []int{32, 64, 128, 256}

// discardWriter drops every datagram.
type discardWriter struct{}

func (discardWriter) WriteToUDPAddrPort(b []byte, _ netip.AddrPort) (int, error) {
	return len(b), nil
}

var benchLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newCodec returns a codec keyed from a fixed password.
func newCodec(b *testing.B, packetSize int) *protocol.Codec {
	b.Helper()
	key := kdf.FromSHA256([]byte("benchmark-password"))
	c, err := protocol.NewCodecForPacket(key, packetSize)
	if err != nil {
		b.Fatalf("NewCodecForPacket(%d) error = %v", packetSize, err)
	}
	return c
}

// clientAddr returns a distinct IPv4 client address for i.
func clientAddr(i int) netip.AddrPort {
	ip := netip.AddrFrom4([4]byte{10, byte(i >> 16), byte(i >> 8), byte(i)})
	return netip.AddrPortFrom(ip, uint16(40000+i%20000))
}

// newSession creates an unstarted session for addr.
func newSession(b *testing.B, addr netip.AddrPort, codec *protocol.Codec, hub *pointer.Hub) *session.Session {
	b.Helper()
	src, _ := hub.Open()
	s, err := session.New(addr, session.Config{}, session.Deps{
		Writer:     discardWriter{},
		Sealer:     codec,
		Vocabulary: protocol.MustDefaultVocabulary(),
		Source:     src,
		Logger:     benchLogger,
	})
	if err != nil {
		b.Fatalf("session.New() error = %v", err)
	}
	return s
}

// prefillRegistry registers count sessions.
func prefillRegistry(b *testing.B, reg *session.Registry, count int) []*session.Session {
	b.Helper()
	codec := newCodec(b, 32)
	hub := pointer.NewHub()
	sessions := make([]*session.Session, count)
	for i := 0; i < count; i++ {
		sessions[i] = newSession(b, clientAddr(i), codec, hub)
		reg.Register(sessions[i])
	}
	return sessions
}

// reportMemory reports memory statistics.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithSessionCounts runs a benchmark function with various session counts.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
