package config

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/pkg/crypto/kdf"
)

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.Security.Password = "hunter22"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Server.PacketSize != DefaultPacketSize {
		t.Errorf("PacketSize = %d, want %d", cfg.Server.PacketSize, DefaultPacketSize)
	}
	if !cfg.Server.HTTP.Enabled || cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP = %+v, want enabled on %s", cfg.Server.HTTP, DefaultHTTPAddr)
	}
	if cfg.Session.UpdateIntervalMS != DefaultUpdateIntervalMS {
		t.Errorf("UpdateIntervalMS = %d, want %d", cfg.Session.UpdateIntervalMS, DefaultUpdateIntervalMS)
	}
	if cfg.Session.Sensitivity != DefaultSensitivity {
		t.Errorf("Sensitivity = %v, want %v", cfg.Session.Sensitivity, DefaultSensitivity)
	}
	if !cfg.Crypto.StrictPadding {
		t.Error("StrictPadding should default to true")
	}
	if cfg.Protocol.OpenRequest != "OPEN" || cfg.Protocol.Clicks["left"] != "C_left_F" {
		t.Errorf("Protocol = %+v, want default tokens", cfg.Protocol)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// Each call returns an independent value.
	other := Default()
	other.Protocol.Clicks["left"] = "changed"
	if cfg.Protocol.Clicks["left"] != "C_left_F" {
		t.Error("Default() shares the clicks map between calls")
	}
}

func TestVerify_Default(t *testing.T) {
	if err := Verify(Default()); err == nil || !strings.Contains(err.Error(), "password or key_hex") {
		t.Errorf("Verify(Default()) = %v, want missing key error", err)
	}
	if err := Verify(validConfig()); err != nil {
		t.Errorf("Verify(valid) = %v", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"listen addr", func(c *ServerConfig) { c.Server.ListenAddr = "nope" }, "server.listen_addr"},
		{"packet too small", func(c *ServerConfig) { c.Server.PacketSize = 16 }, "server.packet_size"},
		{"packet unaligned", func(c *ServerConfig) { c.Server.PacketSize = 40 }, "server.packet_size"},
		{"packet too large", func(c *ServerConfig) { c.Server.PacketSize = 272 }, "server.packet_size"},
		{"negative rate", func(c *ServerConfig) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"http addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "" }, "server.http.addr"},
		{"http rate", func(c *ServerConfig) { c.Server.HTTP.RateLimit = -5 }, "server.http.rate_limit"},
		{"allow list", func(c *ServerConfig) { c.Server.HTTP.AllowList = []string{"bogus"} }, "server.http.allow_list"},
		{"auth token hash", func(c *ServerConfig) { c.Server.HTTP.AuthToken = "sha256:abc" }, "server.http.auth_token"},
		{"tls half pair", func(c *ServerConfig) { c.Server.HTTP.TLS.CertFile = "server.crt" }, "server.http.tls"},
		{"tls ca only", func(c *ServerConfig) { c.Server.HTTP.TLS.ClientCAFile = "ca.pem" }, "server.http.tls"},
		{"interval zero", func(c *ServerConfig) { c.Session.UpdateIntervalMS = 0 }, "session.update_interval_ms"},
		{"interval huge", func(c *ServerConfig) { c.Session.UpdateIntervalMS = 60_000 }, "session.update_interval_ms"},
		{"sensitivity zero", func(c *ServerConfig) { c.Session.Sensitivity = 0 }, "session.sensitivity"},
		{"sensitivity NaN", func(c *ServerConfig) { c.Session.Sensitivity = math.NaN() }, "session.sensitivity"},
		{"idle negative", func(c *ServerConfig) { c.Session.IdleTimeout = -time.Second }, "session.idle_timeout"},
		{"both secrets", func(c *ServerConfig) { c.Security.KeyHex = strings.Repeat("ab", 16) }, "mutually exclusive"},
		{"bad hex key", func(c *ServerConfig) {
			c.Security.Password = ""
			c.Security.KeyHex = "abc"
		}, "security.key_hex"},
		{"bad kdf", func(c *ServerConfig) { c.Security.KDF = "md5" }, "security.kdf"},
		{"argon2 salt", func(c *ServerConfig) {
			c.Security.KDF = "argon2id"
			c.Security.Salt = "short"
		}, "security.salt"},
		{"empty token", func(c *ServerConfig) { c.Protocol.OpenAck = "" }, "open_ack"},
		{"unknown click", func(c *ServerConfig) { c.Protocol.Clicks["double"] = "C_dbl" }, "protocol.clicks"},
		{"log level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestVerify_HTTPDisabledSkipsHTTPChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTP.Enabled = false
	cfg.Server.HTTP.Addr = ""
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestVerify_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Server.PacketSize = 1
	cfg.Log.Format = "xml"
	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() = nil")
	}
	for _, want := range []string{"server.packet_size", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify() = %v, missing %q", err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTP.AuthToken = "token-1234567890"

	sanitized := Sanitize(cfg)

	if cfg.Security.Password != "hunter22" || cfg.Server.HTTP.AuthToken != "token-1234567890" {
		t.Error("original config should not be modified")
	}
	if sanitized.Security.Password != "hu****22" {
		t.Errorf("Password = %q, want hu****22", sanitized.Security.Password)
	}
	if sanitized.Server.HTTP.AuthToken == cfg.Server.HTTP.AuthToken {
		t.Error("auth token not masked")
	}
	if sanitized.Security.KeyHex != "" {
		t.Errorf("empty KeyHex became %q", sanitized.Security.KeyHex)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"1234567890", "12******90"},
	}

	for _, tt := range tests {
		if result := maskSecret(tt.input); result != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestToTokens(t *testing.T) {
	cfg := Default().Protocol
	delete(cfg.Clicks, "middle")
	cfg.Clicks["Middle"] = "C_mid"

	tokens, err := ToTokens(&cfg)
	if err != nil {
		t.Fatalf("ToTokens() error = %v", err)
	}
	if tokens.HeartbeatAck != "BEAT" {
		t.Errorf("HeartbeatAck = %q", tokens.HeartbeatAck)
	}
	if tokens.Clicks[protocol.ClickMiddle] != "C_mid" {
		t.Errorf("Clicks[middle] = %q, want C_mid", tokens.Clicks[protocol.ClickMiddle])
	}
	if _, err := protocol.NewVocabulary(tokens); err != nil {
		t.Errorf("NewVocabulary() error = %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name    string
		sec     SecuritySection
		wantLen int
		wantErr error
	}{
		{"sha256 password", SecuritySection{Password: "pw", KDF: "sha256"}, kdf.KeyLength, nil},
		{"default kdf", SecuritySection{Password: "pw"}, kdf.KeyLength, nil},
		{"argon2id", SecuritySection{Password: "pw", KDF: "argon2id", Salt: "saltsalt"}, kdf.KeyLength, nil},
		{"hex 256", SecuritySection{KeyHex: strings.Repeat("0f", 32)}, 32, nil},
		{"empty", SecuritySection{}, 0, kdf.ErrEmptyPassword},
		{"unknown kdf", SecuritySection{Password: "pw", KDF: "rot13"}, 0, kdf.ErrUnknownAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(&tt.sec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DeriveKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if len(key) != tt.wantLen {
				t.Errorf("len(key) = %d, want %d", len(key), tt.wantLen)
			}
		})
	}

	// The sha256 mode matches the key clients seal OPEN with.
	key, _ := DeriveKey(&SecuritySection{Password: "pw"})
	want := kdf.FromSHA256([]byte("pw"))
	if string(key) != string(want) {
		t.Error("sha256 key differs from kdf.FromSHA256")
	}
}

func TestNewCodec(t *testing.T) {
	cfg := validConfig()
	cfg.Server.PacketSize = 48

	codec, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	if codec.PacketSize() != 48 {
		t.Errorf("PacketSize() = %d, want 48", codec.PacketSize())
	}

	// A client deriving the same key reads what the codec seals.
	peer, err := protocol.NewCodecForPacket(kdf.FromSHA256([]byte("hunter22")), 48)
	if err != nil {
		t.Fatalf("NewCodecForPacket() error = %v", err)
	}
	b, err := codec.Seal(9, []byte("BEAT"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	msg, err := peer.Open(b)
	if err != nil || msg.Seq != 9 || string(msg.Payload) != "BEAT" {
		t.Errorf("peer Open() = %+v, %v", msg, err)
	}

	cfg.Server.PacketSize = 40
	if _, err := NewCodec(cfg); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("NewCodec(packet 40) error = %v, want ErrInvalidArgument", err)
	}
}

func TestToUDPConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Session.IdleTimeout = 30 * time.Second
	s := pointer.NewSensitivity(2)

	u := ToUDPConfig(cfg, s)
	if u.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", u.ListenAddr)
	}
	if u.UpdateInterval != 50*time.Millisecond {
		t.Errorf("UpdateInterval = %v, want 50ms", u.UpdateInterval)
	}
	if u.IdleTimeout != 30*time.Second || u.RateLimit != DefaultRateLimit || u.Sensitivity != s {
		t.Errorf("ToUDPConfig() = %+v", u)
	}
}

func TestToRouterConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTP.AuthToken = "tok"

	r := ToRouterConfig(cfg, nil, pointer.NewHub(), nil, nil)
	if r.AuthToken != "tok" || r.RateLimit != DefaultHTTPRateLimit || !r.EnableAudit {
		t.Errorf("ToRouterConfig() = %+v", r)
	}
	if len(r.AllowList) != 2 {
		t.Errorf("AllowList = %v", r.AllowList)
	}
}

func TestToLoggerConfig(t *testing.T) {
	lc := ToLoggerConfig(&LogSection{Level: "debug", Format: "text"})
	if lc.Level != "debug" || lc.Format != "text" || lc.Output == nil {
		t.Errorf("ToLoggerConfig() = %+v", lc)
	}
}

func TestNewTLS(t *testing.T) {
	tc, w, err := NewTLS(&TLSSection{}, nil)
	if tc != nil || w != nil || err != nil {
		t.Fatalf("NewTLS(disabled) = %v, %v, %v", tc, w, err)
	}

	if _, _, err := NewTLS(&TLSSection{CertFile: "server.crt"}, nil); err == nil {
		t.Error("NewTLS() should reject a certificate without a key")
	}

	dir := t.TempDir()
	missing := &TLSSection{CertFile: dir + "/server.crt", KeyFile: dir + "/server.key"}
	if _, _, err := NewTLS(missing, nil); err == nil {
		t.Error("NewTLS() should fail for missing files")
	}
}
