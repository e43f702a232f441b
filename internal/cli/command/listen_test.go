package command

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/pointerd/internal/cli/config"
	"github.com/yndnr/pointerd/internal/cli/output"
	"github.com/yndnr/pointerd/internal/client"
	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/protocol"
	serverconfig "github.com/yndnr/pointerd/internal/server/config"
	"github.com/yndnr/pointerd/internal/server/udpserver"
)

func serverCodec(t *testing.T, password string) *protocol.Codec {
	t.Helper()
	cfg := serverconfig.Default()
	cfg.Security.Password = password
	codec, err := serverconfig.NewCodec(cfg)
	if err != nil {
		t.Fatalf("server NewCodec() error = %v", err)
	}
	return codec
}

func TestNewStreamCodec(t *testing.T) {
	base := config.Default().Stream

	tests := []struct {
		name   string
		mutate func(*config.StreamConfig)
	}{
		{"no secret", func(*config.StreamConfig) {}},
		{"both secrets", func(s *config.StreamConfig) {
			s.Password = "pw"
			s.KeyHex = strings.Repeat("ab", 32)
		}},
		{"bad packet size", func(s *config.StreamConfig) {
			s.Password = "pw"
			s.PacketSize = 40
		}},
		{"bad kdf", func(s *config.StreamConfig) {
			s.Password = "pw"
			s.KDF = "md5"
		}},
		{"bad hex key", func(s *config.StreamConfig) { s.KeyHex = "zz" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			if _, err := newStreamCodec(s); err == nil {
				t.Error("newStreamCodec() expected error")
			}
		})
	}
}

func TestNewStreamCodec_MatchesServer(t *testing.T) {
	s := config.Default().Stream
	s.Password = "correct horse"

	codec, err := newStreamCodec(s)
	if err != nil {
		t.Fatalf("newStreamCodec() error = %v", err)
	}
	datagram, err := codec.Seal(5, []byte("HEART"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	msg, err := serverCodec(t, "correct horse").Open(datagram)
	if err != nil {
		t.Fatalf("server Open() error = %v", err)
	}
	if msg.Seq != 5 || string(msg.Payload) != "HEART" {
		t.Errorf("opened = %+v", msg)
	}
}

func TestNewEventPrinter(t *testing.T) {
	move := client.Event{Kind: protocol.KindMove, Seq: 4, DX: 3, DY: -4}
	click := client.Event{Kind: protocol.KindClick, Seq: 5, Click: protocol.ClickLeft}

	tests := []struct {
		format output.Format
		want   string
	}{
		{output.FormatTable, "seq=4 move dx=3 dy=-4\nseq=5 click left\n"},
		{output.FormatJSON, `{"kind":"move","seq":4,"dx":3,"dy":-4}` + "\n" + `{"kind":"click","seq":5,"click":"left"}` + "\n"},
		{output.FormatYAML, "---\nkind: move\nseq: 4\ndx: 3\ndy: -4\n---\nkind: click\nseq: 5\nclick: left\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			emit := newEventPrinter(&buf, tt.format)
			for _, ev := range []client.Event{move, click} {
				if err := emit(ev); err != nil {
					t.Fatalf("emit() error = %v", err)
				}
			}
			if buf.String() != tt.want {
				t.Errorf("output =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestListen_MissingSecret(t *testing.T) {
	_, _, err := runCLI(t, "listen", "--server", "127.0.0.1:1", "--duration", "100ms")
	if err == nil || !strings.Contains(err.Error(), "--password") {
		t.Errorf("error = %v, want missing secret", err)
	}
}

func TestListen_EndToEnd(t *testing.T) {
	codec := serverCodec(t, "pw")
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	srv := udpserver.New(&udpserver.Config{UpdateInterval: 10 * time.Millisecond},
		codec, protocol.MustDefaultVocabulary(), pointer.NewHub(),
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, conn) }()

	// Click once the CLI's session is up.
	go func() {
		for ctx.Err() == nil {
			if srv.Len() > 0 {
				_ = srv.ExecuteClick(protocol.ClickRightUp)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	stdout, stderr, err := runCLI(t, "-o", "json", "listen",
		"--server", conn.LocalAddr().String(),
		"--password", "pw",
		"--timeout", "50ms",
		"--count", "1",
		"--duration", "5s",
	)
	if err != nil {
		t.Fatalf("listen error = %v (stderr: %s)", err, stderr)
	}

	var got eventView
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &got); err != nil {
		t.Fatalf("stdout %q is not one JSON event: %v", stdout, err)
	}
	if got.Kind != "click" || got.Click != "right-up" {
		t.Errorf("event = %+v, want right-up click", got)
	}
	if !strings.Contains(stderr, "session open with") {
		t.Errorf("stderr = %q, want open confirmation", stderr)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := srv.Len(); n != 0 {
		t.Errorf("server sessions after listen = %d, want 0", n)
	}
}
