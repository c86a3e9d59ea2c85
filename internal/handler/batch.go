package handler

import (
	"net/http"
)

// GET /recommendations/batch
func (h *Handler) GetBatchOverview(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1, 1, 10000)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 20, 1, 100)
	if !ok {
		return
	}

	result, err := h.service.GetBatchOverview(r.Context(), page, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
