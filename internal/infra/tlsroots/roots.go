package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair is returned when only one of a certificate and
	// its key is configured.
	ErrIncompleteKeyPair = errors.New("tlsroots: cert_file and key_file must be set together")

	// ErrClientCAWithoutCert is returned when client verification is
	// requested without a server certificate.
	ErrClientCAWithoutCert = errors.New("tlsroots: client_ca_file requires cert_file and key_file")
)

// Files names the PEM files of one TLS endpoint.
type Files struct {
	CertFile string
	KeyFile  string

	// CAFile is the bundle used to verify the peer. On the server it
	// enables client certificate verification.
	CAFile string
}

// Enabled reports whether a key pair is configured.
func (f Files) Enabled() bool {
	return f.CertFile != "" || f.KeyFile != ""
}

// Validate checks that the files form a usable server configuration.
func (f Files) Validate() error {
	if (f.CertFile == "") != (f.KeyFile == "") {
		return ErrIncompleteKeyPair
	}
	if f.CAFile != "" && f.CertFile == "" {
		return ErrClientCAWithoutCert
	}
	return nil
}

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a new certificate pool with system roots.
// If system roots cannot be loaded, it creates an empty pool.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a new empty certificate pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds certificates from a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds every CERTIFICATE block of pemData.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ServerConfig returns a TLS config serving the watcher's key pair.
// A non-empty clientCAFile requires and verifies client certificates.
func ServerConfig(certs *Watcher, clientCAFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		GetCertificate: certs.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	if clientCAFile == "" {
		return cfg, nil
	}

	pool := NewEmptyPool()
	if err := pool.AddCertFile(clientCAFile); err != nil {
		return nil, err
	}
	cfg.ClientCAs = pool.Pool()
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg, nil
}

// ClientConfig returns a TLS config for dialing the control API. It
// returns nil when f names no files, leaving the transport defaults.
func ClientConfig(f Files) (*tls.Config, error) {
	if f.CAFile == "" && !f.Enabled() {
		return nil, nil
	}
	if (f.CertFile == "") != (f.KeyFile == "") {
		return nil, ErrIncompleteKeyPair
	}

	pool := NewPool()
	if f.CAFile != "" {
		if err := pool.AddCertFile(f.CAFile); err != nil {
			return nil, err
		}
	}
	cfg := &tls.Config{
		RootCAs:    pool.Pool(),
		MinVersion: tls.VersionTLS12,
	}

	if f.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
