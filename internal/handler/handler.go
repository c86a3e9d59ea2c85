package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

// Service is the recommendation facade used by the handlers.
type Service interface {
	RecommendBody(ctx context.Context, userID int64, req domain.BodyAnalysisRequest) (*domain.Recommendation, error)
	RecommendDiet(ctx context.Context, userID int64, req domain.DietRequest) (*domain.Recommendation, error)
	RecommendWorkout(ctx context.Context, userID int64, req domain.WorkoutRequest) (*domain.Recommendation, error)
	History(ctx context.Context, userID int64, kind domain.Kind, page, size int) (*domain.HistoryPage, error)
	Latest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, bool, error)
	Overview(ctx context.Context, userID int64) []domain.OverviewItem
	ClearCache(ctx context.Context, userID int64) error
	GetBatchOverview(ctx context.Context, page, limit int) (*domain.BatchResponse, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
