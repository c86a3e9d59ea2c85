package domain

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindBody    Kind = "body"
	KindDiet    Kind = "diet"
	KindWorkout Kind = "workout"
)

var Kinds = []Kind{KindBody, KindDiet, KindWorkout}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

// Recommendation is a persisted model result. Payload holds the JSON of a
// BodyAnalysis, DietPlan or WorkoutPlan depending on Kind.
type Recommendation struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Kind             Kind            `json:"kind"`
	ContextLabel     string          `json:"context_label"`
	Payload          json.RawMessage `json:"payload"`
	Model            string          `json:"model,omitempty"`
	PromptTokens     int             `json:"prompt_tokens,omitempty"`
	CompletionTokens int             `json:"completion_tokens,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewerThan reports whether r sorts before other in newest-first order:
// later CreatedAt, then higher ID. A nil other is always older.
func (r *Recommendation) NewerThan(other *Recommendation) bool {
	if other == nil {
		return true
	}
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	return r.ID > other.ID
}

type HistoryPage struct {
	Items []Recommendation `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int              `json:"total"`
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
}

// OverviewItem is the latest result of one kind, or the reason it is missing.
type OverviewItem struct {
	Kind           Kind            `json:"kind"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
}

const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
	StatusSuccess  = "success"
)

type BatchUserResult struct {
	UserID   int64          `json:"user_id"`
	Overview []OverviewItem `json:"overview,omitempty"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Message  string         `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalUsers int               `json:"total_users"`
	Results    []BatchUserResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
	Metadata   BatchMeta         `json:"metadata"`
}

type BatchMeta struct {
	GeneratedAt string `json:"generated_at"`
}
