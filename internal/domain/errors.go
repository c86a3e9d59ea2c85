package domain

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrInvalidKind            = errors.New("invalid recommendation kind")
	ErrInvalidRequest         = errors.New("invalid recommendation request")

	// ErrAIDisabled means no usable credential is configured for the AI provider.
	ErrAIDisabled = errors.New("ai recommendations are disabled")
	// ErrAIUnavailable means the provider was called but no usable response came back.
	ErrAIUnavailable = errors.New("ai provider unavailable")
)
