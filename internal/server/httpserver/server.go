package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// readHeaderTimeout bounds slow request headers.
const readHeaderTimeout = 5 * time.Second

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithTLS serves HTTPS using cfg. Certificates come from cfg itself, so
// cfg should set Certificates or GetCertificate.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.httpServer.TLSConfig = cfg
	}
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TLS reports whether the server speaks HTTPS.
func (s *Server) TLS() bool {
	return s.httpServer.TLSConfig != nil
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	if s.TLS() {
		return ignoreClosed(s.httpServer.ListenAndServeTLS("", ""))
	}
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.TLS() {
		return ignoreClosed(s.httpServer.ServeTLS(ln, "", ""))
	}
	return ignoreClosed(s.httpServer.Serve(ln))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
