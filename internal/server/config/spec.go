package config

import "time"

// ServerConfig is the root configuration for pointerd-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Session  SessionSection  `koanf:"session"`
	Security SecuritySection `koanf:"security"`
	Crypto   CryptoSection   `koanf:"crypto"`
	Protocol ProtocolSection `koanf:"protocol"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	// ListenAddr is the UDP address sessions are served on.
	ListenAddr string `koanf:"listen_addr"`

	// PacketSize is the datagram size for short messages: one IV block
	// plus the padded ciphertext. PacketSize-16 must be a multiple of 16.
	PacketSize int `koanf:"packet_size"`

	// RateLimit is datagrams per second accepted from one source IP.
	// Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`

	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the control API.
type HTTPConfig struct {
	Enabled   bool     `koanf:"enabled"`
	Addr      string   `koanf:"addr"`
	AuthToken string   `koanf:"auth_token"`
	AllowList []string `koanf:"allow_list"`
	RateLimit int      `koanf:"rate_limit"`

	TLS TLSSection `koanf:"tls"`
}

// TLSSection serves the control API over HTTPS when CertFile and KeyFile
// are set. The key pair is reloaded when either file changes.
type TLSSection struct {
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// ClientCAFile requires client certificates signed by this bundle.
	ClientCAFile string `koanf:"client_ca_file"`
}

// SessionSection configures per-session behavior.
type SessionSection struct {
	// UpdateIntervalMS is the movement send period in milliseconds.
	UpdateIntervalMS int `koanf:"update_interval_ms"`

	// Sensitivity scales outbound movement. Hot-reloadable.
	Sensitivity float64 `koanf:"sensitivity"`

	// IdleTimeout stops sessions that sent nothing for this long.
	// Zero disables reaping.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// SecuritySection configures the shared key. Exactly one of Password and
// KeyHex is set.
type SecuritySection struct {
	Password string `koanf:"password"`
	KeyHex   string `koanf:"key_hex"`
	// KDF is sha256 (the key existing clients seal OPEN with) or argon2id.
	KDF  string `koanf:"kdf"`
	Salt string `koanf:"salt"`
}

// CryptoSection configures the cipher.
type CryptoSection struct {
	// StrictPadding rejects frames whose padding bytes are not all equal.
	StrictPadding bool `koanf:"strict_padding"`
}

// ProtocolSection holds the message tokens exchanged with clients.
type ProtocolSection struct {
	OpenRequest      string            `koanf:"open_request"`
	OpenAck          string            `koanf:"open_ack"`
	HeartbeatRequest string            `koanf:"heartbeat_request"`
	HeartbeatAck     string            `koanf:"heartbeat_ack"`
	CloseRequest     string            `koanf:"close_request"`
	MoveRelative     string            `koanf:"move_relative"`
	Clicks           map[string]string `koanf:"clicks"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
