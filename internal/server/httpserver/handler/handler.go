package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/core/session"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
)

// Dispatcher is the UDP side driven by the control API.
// *udpserver.Server implements it.
type Dispatcher interface {
	Addr() net.Addr
	Len() int
	Sessions() []session.Info
	ExecuteClick(kind protocol.ClickKind) error
}

// Movement receives host pointer movement. *pointer.Hub implements it.
type Movement interface {
	Add(dx, dy int)
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	dispatcher Dispatcher
	movement   Movement
	metrics    http.Handler
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a Handler. A nil metrics handler disables /metrics.
func New(dispatcher Dispatcher, movement Movement, metrics http.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		dispatcher: dispatcher,
		movement:   movement,
		metrics:    metrics,
		logger:     logger,
		mux:        http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}

	h.mux.HandleFunc("GET /v1/sessions", h.handleListSessions)
	h.mux.HandleFunc("POST /v1/pointer/move", h.handleMove)
	h.mux.HandleFunc("POST /v1/pointer/click", h.handleClick)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteError(w, getRequestID(r), status, code, message, details)
}

// WriteError writes an error envelope. Middlewares use it for rejections.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// getRequestID returns the request ID set by the RequestID middleware,
// falling back to the inbound header.
func getRequestID(r *http.Request) string {
	if reqID := logger.RequestIDFromContext(r.Context()); reqID != "" {
		return reqID
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts domain errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := ErrorCodeToHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed", "request_id", getRequestID(r), "error", err)
		}
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	// Generic internal error
	h.logger.Error("internal error", "request_id", getRequestID(r), "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error", nil)
}

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "PD-ARG-"), code == domain.ErrBadRequest.Code:
		return http.StatusBadRequest
	case strings.HasPrefix(code, "PD-PROTO-"):
		return http.StatusConflict
	case strings.HasPrefix(code, "PD-NET-"):
		return http.StatusBadGateway
	case code == domain.ErrNotReady.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
