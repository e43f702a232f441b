package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/pointerd/internal/server/httpserver/handler"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Dispatcher is the UDP dispatcher driven by the API.
	Dispatcher handler.Dispatcher

	// Movement receives pointer movement.
	Movement handler.Movement

	// Metrics is exposed on /metrics and records request metrics.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// AuthToken is the bearer token for /v1 endpoints (empty = no auth).
	AuthToken string

	// AllowList is the IP/CIDR allowlist for /v1 and /metrics (empty = no restriction).
	AllowList []string

	// RateLimit is the per-IP rate limit for /v1 endpoints (requests/second, 0 = off).
	RateLimit int

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AllowList:   []string{"127.0.0.1", "::1"},
		RateLimit:   100,
		EnableAudit: true,
	}
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var metricsHandler http.Handler
	if cfg.Metrics != nil {
		metricsHandler = cfg.Metrics.Handler()
	}
	h := handler.New(cfg.Dispatcher, cfg.Movement, metricsHandler, log)

	// Order: Recover -> RequestID -> Audit -> route specific -> Handler
	base := []Middleware{Recover(log), RequestID()}
	if cfg.EnableAudit {
		base = append(base, Audit(log, cfg.Metrics))
	}
	with := func(extra ...Middleware) http.Handler {
		mws := append(append([]Middleware(nil), base...), extra...)
		return Chain(h, mws...)
	}

	acl := NetworkACL(&NetworkACLConfig{AllowList: cfg.AllowList, Logger: log})

	mux := http.NewServeMux()

	// Health endpoints - no restriction
	public := with()
	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)

	// Metrics endpoint - network ACL only
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", with(acl))
	}

	// Control endpoints
	api := with(RateLimit(cfg.RateLimit), acl, Auth(cfg.AuthToken))
	mux.Handle("GET /v1/sessions", api)
	mux.Handle("POST /v1/pointer/move", api)
	mux.Handle("POST /v1/pointer/click", api)

	return mux
}
