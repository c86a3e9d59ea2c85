package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/service"
)

var statusByCode = map[string]int{
	"invalid_request":          http.StatusBadRequest,
	"user_not_found":           http.StatusNotFound,
	"recommendation_not_found": http.StatusNotFound,
	"ai_disabled":              http.StatusServiceUnavailable,
	"ai_timeout":               http.StatusGatewayTimeout,
	"ai_unavailable":           http.StatusBadGateway,
	"request_timeout":          http.StatusServiceUnavailable,
}

// writeServiceError maps a service error to its HTTP status and code.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := service.CategorizeError(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message)
}
