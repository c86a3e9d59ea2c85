package handler

import "github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"

type RecommendationResponse struct {
	UserID         int64                     `json:"user_id"`
	Recommendation *domain.Recommendation    `json:"recommendation"`
	Metadata       domain.RecommendationMeta `json:"metadata"`
}

type OverviewResponse struct {
	UserID int64                 `json:"user_id"`
	Items  []domain.OverviewItem `json:"items"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
