package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/server/httpserver/handler"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
	"github.com/yndnr/pointerd/pkg/cmap"
	"github.com/yndnr/pointerd/pkg/token"
)

// Context keys for request-scoped values.
type contextKey string

// ContextKeyStartTime is the context key for request start time.
const ContextKeyStartTime contextKey = "start_time"

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// maxRateLimiters bounds the per-IP limiter table.
const maxRateLimiters = 4096

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check for existing request ID in header
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = "req-" + strings.ToLower(ulid.Make().String())
			}

			// Add to response header
			w.Header().Set("X-Request-ID", requestID)

			// Add to request context
			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth requires "Authorization: Bearer <token>". The configured token
// may be plain or in token.Hash form. An empty token disables the check;
// a malformed hash rejects every request.
func Auth(configured string) Middleware {
	return func(next http.Handler) http.Handler {
		if configured == "" {
			return next
		}
		m, err := token.NewMatcher(configured)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if err != nil || !ok || !m.Match(got) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="pointerd"`)
				writeMiddlewareError(w, r, domain.ErrUnauthorized, "bearer token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-IP rate limiting with a token bucket of
// requestsPerSecond tokens.
func RateLimit(requestsPerSecond int) Middleware {
	limiters := cmap.New[string, *rate.Limiter]()

	getOrCreate := func(ip string) *rate.Limiter {
		if l, ok := limiters.Get(ip); ok {
			return l
		}
		if limiters.Count() >= maxRateLimiters {
			limiters.Clear()
		}
		l, _ := limiters.GetOrCompute(ip, func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		})
		return l
	}

	return func(next http.Handler) http.Handler {
		if requestsPerSecond <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !getOrCreate(getClientIP(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeMiddlewareError(w, r, domain.ErrTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs every request and records it in metrics.
func Audit(log *slog.Logger, metrics *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			start, ok := r.Context().Value(ContextKeyStartTime).(time.Time)
			if !ok {
				start = time.Now()
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), duration.Seconds())

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"client_ip", getClientIP(r),
			}

			// Log based on status code
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeMiddlewareError(w, r, domain.ErrInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NetworkACLConfig holds configuration for network ACL middleware.
type NetworkACLConfig struct {
	// AllowList is the list of allowed IP/CIDR entries.
	// Empty list means no restriction.
	AllowList []string

	// Logger for logging denied requests.
	Logger *slog.Logger
}

// NetworkACL creates a middleware that checks client IP against an allowlist.
func NetworkACL(cfg *NetworkACLConfig) Middleware {
	prefixes, err := ParseAllowList(cfg.AllowList)
	if err != nil && cfg.Logger != nil {
		cfg.Logger.Warn("ignoring invalid allowlist entries", "error", err)
	}

	return func(next http.Handler) http.Handler {
		// If allowlist is empty, no restriction
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			ip, err := netip.ParseAddr(clientIP)
			if err != nil {
				writeMiddlewareError(w, r, domain.ErrForbidden, "invalid client IP")
				return
			}
			ip = ip.Unmap()

			for _, p := range prefixes {
				if p.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.Logger != nil {
				cfg.Logger.Warn("request denied by network ACL",
					"client_ip", clientIP,
					"path", r.URL.Path,
				)
			}
			writeMiddlewareError(w, r, domain.ErrForbidden, "IP not in allowlist")
		})
	}
}

// ParseAllowList parses IP and CIDR entries. Valid entries are returned
// even when some are invalid; the error names the invalid ones.
func ParseAllowList(entries []string) ([]netip.Prefix, error) {
	var (
		prefixes []netip.Prefix
		bad      []string
	)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				bad = append(bad, entry)
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		ip, err := netip.ParseAddr(entry)
		if err != nil {
			bad = append(bad, entry)
			continue
		}
		ip = ip.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(ip, ip.BitLen()))
	}
	if len(bad) > 0 {
		return prefixes, domain.ErrInvalidArgument.WithDetails("allowlist entries: " + strings.Join(bad, ", "))
	}
	return prefixes, nil
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// writeMiddlewareError writes a rejection in the API envelope.
func writeMiddlewareError(w http.ResponseWriter, r *http.Request, err *domain.DomainError, message string) {
	handler.WriteError(w, logger.RequestIDFromContext(r.Context()),
		handler.ErrorCodeToHTTPStatus(err.Code), err.Code, message, nil)
}

// getClientIP returns the peer IP of the connection. Forwarding headers
// are not consulted.
func getClientIP(r *http.Request) string {
	// Use net.SplitHostPort to correctly handle IPv6 addresses like [::1]:8080
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
