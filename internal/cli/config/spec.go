package config

import "time"

// CLIConfig is the configuration for pointerd-cli.
type CLIConfig struct {
	API    APIConfig    `koanf:"api" json:"api" yaml:"api"`
	Stream StreamConfig `koanf:"stream" json:"stream" yaml:"stream"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" json:"output" yaml:"output"`
}

// APIConfig locates the server's HTTP control API.
type APIConfig struct {
	Addr  string `koanf:"addr" json:"addr" yaml:"addr"`
	Token string `koanf:"token" json:"token,omitempty" yaml:"token,omitempty"`

	// CAFile adds a private CA to the system roots for https addresses.
	CAFile string `koanf:"ca_file" json:"ca_file,omitempty" yaml:"ca_file,omitempty"`

	// CertFile and KeyFile are presented when the server requires
	// client certificates.
	CertFile string `koanf:"cert_file" json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `koanf:"key_file" json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// StreamConfig holds the UDP stream settings. They must match the
// server's security and packet settings.
type StreamConfig struct {
	Server     string        `koanf:"server" json:"server" yaml:"server"`
	Password   string        `koanf:"password" json:"password,omitempty" yaml:"password,omitempty"`
	KeyHex     string        `koanf:"key_hex" json:"key_hex,omitempty" yaml:"key_hex,omitempty"`
	KDF        string        `koanf:"kdf" json:"kdf" yaml:"kdf"`
	Salt       string        `koanf:"salt" json:"salt,omitempty" yaml:"salt,omitempty"`
	PacketSize int           `koanf:"packet_size" json:"packet_size" yaml:"packet_size"`
	Timeout    time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	MaxRefresh int           `koanf:"max_refresh" json:"max_refresh" yaml:"max_refresh"`

	// LenientPadding accepts padding the server would reject in strict
	// mode. It mirrors crypto.strict_padding=false on the server.
	LenientPadding bool `koanf:"lenient_padding" json:"lenient_padding,omitempty" yaml:"lenient_padding,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		API: APIConfig{
			Addr: "http://127.0.0.1:10880",
		},
		Stream: StreamConfig{
			Server:     "127.0.0.1:10888",
			KDF:        "sha256",
			PacketSize: 32,
			Timeout:    time.Second,
			MaxRefresh: 5,
		},
		Output: "table",
	}
}
