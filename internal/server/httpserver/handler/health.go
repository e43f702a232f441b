package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.health("healthy"))
}

// handleReady handles GET /ready. It reports ready once the UDP socket
// is bound.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil || h.dispatcher.Addr() == nil {
		h.handleServiceError(w, r, domain.ErrNotReady.WithDetails("udp listener not bound"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.health("ready"))
}

func (h *Handler) health(status string) HealthResponse {
	resp := HealthResponse{
		Status: status,
		Time:   time.Now().UTC().Format(time.RFC3339),
		Build:  buildinfo.Get(),
	}
	if h.dispatcher != nil {
		if addr := h.dispatcher.Addr(); addr != nil {
			resp.Listen = addr.String()
		}
		resp.Sessions = h.dispatcher.Len()
	}
	return resp
}
