package config

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/infra/tlsroots"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/server/httpserver"
	"github.com/yndnr/pointerd/internal/server/httpserver/handler"
	"github.com/yndnr/pointerd/internal/server/udpserver"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
	"github.com/yndnr/pointerd/pkg/crypto/cbc"
	"github.com/yndnr/pointerd/pkg/crypto/kdf"
)

// ToTokens converts the protocol section into validated tokens. Click
// names are those accepted by protocol.ParseClickKind.
func ToTokens(cfg *ProtocolSection) (protocol.Tokens, error) {
	t := protocol.Tokens{
		OpenRequest:      cfg.OpenRequest,
		OpenAck:          cfg.OpenAck,
		HeartbeatRequest: cfg.HeartbeatRequest,
		HeartbeatAck:     cfg.HeartbeatAck,
		CloseRequest:     cfg.CloseRequest,
		MoveRelative:     cfg.MoveRelative,
		Clicks:           make(map[protocol.ClickKind]string, len(cfg.Clicks)),
	}
	for name, token := range cfg.Clicks {
		kind, err := protocol.ParseClickKind(name)
		if err != nil {
			return protocol.Tokens{}, fmt.Errorf("protocol.clicks: %w", err)
		}
		t.Clicks[kind] = token
	}
	if err := t.Validate(); err != nil {
		return protocol.Tokens{}, err
	}
	return t, nil
}

// DeriveKey returns the AES key described by the security section. The
// caller should zero it with kdf.ZeroKey once the cipher is built.
func DeriveKey(cfg *SecuritySection) ([]byte, error) {
	if cfg.KeyHex != "" {
		return kdf.ParseHexKey(cfg.KeyHex)
	}
	alg, err := kdf.ParseAlgorithm(cfg.KDF)
	if err != nil {
		return nil, err
	}
	return kdf.Derive(alg, []byte(cfg.Password), []byte(cfg.Salt))
}

// NewCodec builds the datagram codec from the security, crypto and
// server sections.
func NewCodec(cfg *ServerConfig) (*protocol.Codec, error) {
	key, err := DeriveKey(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer kdf.ZeroKey(key)

	var opts []cbc.Option
	if !cfg.Crypto.StrictPadding {
		opts = append(opts, cbc.WithLenientPadding())
	}
	return protocol.NewCodecForPacket(key, cfg.Server.PacketSize, opts...)
}

// ToUDPConfig converts ServerConfig to udpserver.Config. sensitivity is
// shared with the running server so reloads take effect immediately.
func ToUDPConfig(cfg *ServerConfig, sensitivity *pointer.Sensitivity) *udpserver.Config {
	return &udpserver.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		UpdateInterval: time.Duration(cfg.Session.UpdateIntervalMS) * time.Millisecond,
		IdleTimeout:    cfg.Session.IdleTimeout,
		RateLimit:      cfg.Server.RateLimit,
		Sensitivity:    sensitivity,
	}
}

// ToRouterConfig converts the HTTP section to httpserver.RouterConfig.
func ToRouterConfig(cfg *ServerConfig, dispatcher handler.Dispatcher, movement handler.Movement,
	metrics *metric.Registry, log *slog.Logger) *httpserver.RouterConfig {
	return &httpserver.RouterConfig{
		Dispatcher:  dispatcher,
		Movement:    movement,
		Metrics:     metrics,
		Logger:      log,
		AuthToken:   cfg.Server.HTTP.AuthToken,
		AllowList:   cfg.Server.HTTP.AllowList,
		RateLimit:   cfg.Server.HTTP.RateLimit,
		EnableAudit: true,
	}
}

// ToTLSFiles converts the TLS section to tlsroots.Files.
func ToTLSFiles(cfg *TLSSection) tlsroots.Files {
	return tlsroots.Files{
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
		CAFile:   cfg.ClientCAFile,
	}
}

// NewTLS builds the control API TLS config and the watcher that keeps its
// key pair current. Both are nil when TLS is not configured. The caller
// starts and stops the watcher.
func NewTLS(cfg *TLSSection, log *slog.Logger) (*tls.Config, *tlsroots.Watcher, error) {
	files := ToTLSFiles(cfg)
	if !files.Enabled() {
		return nil, nil, nil
	}
	if err := files.Validate(); err != nil {
		return nil, nil, err
	}

	w, err := tlsroots.NewWatcher(files.CertFile, files.KeyFile, tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	tc, err := tlsroots.ServerConfig(w, files.CAFile)
	if err != nil {
		_ = w.Stop()
		return nil, nil, err
	}
	return tc, w, nil
}

// ToLoggerConfig converts the log section to logger.Config.
func ToLoggerConfig(cfg *LogSection) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Level
	lc.Format = cfg.Format
	return lc
}
