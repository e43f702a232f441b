package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/pointerd/internal/server/httpserver"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
	"github.com/yndnr/pointerd/pkg/crypto/cbc"
	"github.com/yndnr/pointerd/pkg/crypto/kdf"
	"github.com/yndnr/pointerd/pkg/token"
)

// Limits enforced by Verify.
const (
	minPacketSize       = cbc.IVSize + cbc.BlockSize
	maxPacketSize       = cbc.IVSize + cbc.MaxPadLimit
	maxUpdateIntervalMS = 10_000
	maxSensitivity      = 100.0
)

// Verify validates the configuration. Every problem found is reported.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifySession(&cfg.Session),
		verifySecurity(&cfg.Security),
		verifyProtocol(&cfg.Protocol),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		errs = append(errs, fmt.Errorf("server.listen_addr %q: %w", cfg.ListenAddr, err))
	}
	if cfg.PacketSize < minPacketSize || cfg.PacketSize > maxPacketSize || (cfg.PacketSize-cbc.IVSize)%cbc.BlockSize != 0 {
		errs = append(errs, fmt.Errorf("server.packet_size must be 16 plus a multiple of 16 between %d and %d, got %d",
			minPacketSize, maxPacketSize, cfg.PacketSize))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	if !cfg.HTTP.Enabled {
		return errors.Join(errs...)
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err))
	}
	if cfg.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
	}
	if _, err := httpserver.ParseAllowList(cfg.HTTP.AllowList); err != nil {
		errs = append(errs, fmt.Errorf("server.http.allow_list: %w", err))
	}
	if _, err := token.NewMatcher(cfg.HTTP.AuthToken); err != nil {
		errs = append(errs, fmt.Errorf("server.http.auth_token: %w", err))
	}
	if err := ToTLSFiles(&cfg.HTTP.TLS).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server.http.tls: %w", err))
	}
	return errors.Join(errs...)
}

func verifySession(cfg *SessionSection) error {
	var errs []error
	if cfg.UpdateIntervalMS <= 0 || cfg.UpdateIntervalMS > maxUpdateIntervalMS {
		errs = append(errs, fmt.Errorf("session.update_interval_ms must be in 1..%d, got %d", maxUpdateIntervalMS, cfg.UpdateIntervalMS))
	}
	if err := VerifySensitivity(cfg.Sensitivity); err != nil {
		errs = append(errs, err)
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, errors.New("session.idle_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// VerifySensitivity checks a movement scale factor.
func VerifySensitivity(v float64) error {
	if !(v > 0 && v <= maxSensitivity) {
		return fmt.Errorf("session.sensitivity must be in (0, %g], got %g", maxSensitivity, v)
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	switch {
	case cfg.Password == "" && cfg.KeyHex == "":
		return errors.New("security: one of password or key_hex is required")
	case cfg.Password != "" && cfg.KeyHex != "":
		return errors.New("security: password and key_hex are mutually exclusive")
	case cfg.KeyHex != "":
		if _, err := kdf.ParseHexKey(cfg.KeyHex); err != nil {
			return fmt.Errorf("security.key_hex: %w", err)
		}
		return nil
	}

	alg, err := kdf.ParseAlgorithm(cfg.KDF)
	if err != nil {
		return fmt.Errorf("security.kdf: %w", err)
	}
	if alg == kdf.Argon2ID && len(cfg.Salt) < kdf.MinSaltLength {
		return fmt.Errorf("security.salt must be at least %d bytes for argon2id", kdf.MinSaltLength)
	}
	return nil
}

func verifyProtocol(cfg *ProtocolSection) error {
	_, err := ToTokens(cfg)
	return err
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", cfg.Format))
	}
	return errors.Join(errs...)
}
