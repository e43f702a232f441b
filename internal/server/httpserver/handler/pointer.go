package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/internal/protocol"
)

// maxDelta bounds one movement request on each axis.
const maxDelta = 1 << 16

// maxBodyBytes bounds control request bodies.
const maxBodyBytes = 4 << 10

// handleMove handles POST /v1/pointer/move.
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if abs(req.DX) > maxDelta || abs(req.DY) > maxDelta {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("dx and dy must be within ±%d", maxDelta)))
		return
	}

	h.movement.Add(req.DX, req.DY)
	h.writeJSON(w, r, http.StatusOK, MoveResponse(req))
}

// handleClick handles POST /v1/pointer/click.
func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	kind, err := protocol.ParseClickKind(req.Kind)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("kind").WithCause(err))
		return
	}

	sessions := h.dispatcher.Len()
	if err := h.dispatcher.ExecuteClick(kind); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ClickResponse{
		Kind:     kind.String(),
		Sessions: sessions,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("invalid request body").WithCause(err)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
