package config

import "github.com/yndnr/pointerd/internal/protocol"

// Default configuration values.
const (
	DefaultListenAddr = "0.0.0.0:10888"
	DefaultPacketSize = 32
	DefaultRateLimit  = 200

	DefaultHTTPAddr      = "127.0.0.1:10880"
	DefaultHTTPRateLimit = 100

	DefaultUpdateIntervalMS = 50
	DefaultSensitivity      = 1.0

	DefaultKDF = "sha256"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			ListenAddr: DefaultListenAddr,
			PacketSize: DefaultPacketSize,
			RateLimit:  DefaultRateLimit,
			HTTP: HTTPConfig{
				Enabled:   true,
				Addr:      DefaultHTTPAddr,
				AllowList: []string{"127.0.0.1", "::1"},
				RateLimit: DefaultHTTPRateLimit,
			},
		},
		Session: SessionSection{
			UpdateIntervalMS: DefaultUpdateIntervalMS,
			Sensitivity:      DefaultSensitivity,
		},
		Security: SecuritySection{
			KDF: DefaultKDF,
		},
		Crypto: CryptoSection{
			StrictPadding: true,
		},
		Protocol: defaultProtocol(),
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func defaultProtocol() ProtocolSection {
	t := protocol.DefaultTokens()
	clicks := make(map[string]string, len(t.Clicks))
	for kind, token := range t.Clicks {
		clicks[kind.String()] = token
	}
	return ProtocolSection{
		OpenRequest:      t.OpenRequest,
		OpenAck:          t.OpenAck,
		HeartbeatRequest: t.HeartbeatRequest,
		HeartbeatAck:     t.HeartbeatAck,
		CloseRequest:     t.CloseRequest,
		MoveRelative:     t.MoveRelative,
		Clicks:           clicks,
	}
}
