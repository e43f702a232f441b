package handler

import "net/http"

// handleListSessions handles GET /v1/sessions.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	items := h.dispatcher.Sessions()
	h.writeJSON(w, r, http.StatusOK, ListSessionsResponse{
		Items: items,
		Total: len(items),
	})
}
