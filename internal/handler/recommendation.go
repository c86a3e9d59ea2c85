package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

const maxBodyBytes = 1 << 20

// POST /users/{userID}/recommendations/{kind}
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	var (
		rec *domain.Recommendation
		err error
	)
	switch kind {
	case domain.KindBody:
		var req domain.BodyAnalysisRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rec, err = h.service.RecommendBody(r.Context(), userID, req)
	case domain.KindDiet:
		var req domain.DietRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rec, err = h.service.RecommendDiet(r.Context(), userID, req)
	case domain.KindWorkout:
		var req domain.WorkoutRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rec, err = h.service.RecommendWorkout(r.Context(), userID, req)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RecommendationResponse{
		UserID:         userID,
		Recommendation: rec,
		Metadata: domain.RecommendationMeta{
			GeneratedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

// GET /users/{userID}/recommendations/{kind}
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	page, ok := queryInt(w, r, "page", 1, 1, 10000)
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "size", 10, 1, 50)
	if !ok {
		return
	}

	result, err := h.service.History(r.Context(), userID, kind, page, size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /users/{userID}/recommendations/{kind}/latest
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	rec, cacheHit, err := h.service.Latest(r.Context(), userID, kind)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendationResponse{
		UserID:         userID,
		Recommendation: rec,
		Metadata: domain.RecommendationMeta{
			CacheHit:    cacheHit,
			GeneratedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

// GET /users/{userID}/recommendations/latest
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, OverviewResponse{
		UserID: userID,
		Items:  h.service.Overview(r.Context(), userID),
	})
}

// DELETE /users/{userID}/recommendations/cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.ClearCache(r.Context(), userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return 0, false
	}
	return userID, true
}

func parseKind(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid kind parameter, expected body, diet or workout")
		return "", false
	}
	return kind, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return false
	}
	return true
}
