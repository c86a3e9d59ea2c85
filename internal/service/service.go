package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/advisor"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/model"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/repository"
)

const (
	defaultPageSize    = 10
	maxPageSize        = 50
	batchConcurrency   = 10
	persistTimeout     = 10 * time.Second
	overviewKindsLimit = 3
)

// Result labels reported to the Recorder.
const (
	ResultSuccess       = "success"
	ResultInvalid       = "invalid"
	ResultDisabled      = "disabled"
	ResultUnavailable   = "unavailable"
	ResultPersistFailed = "persist_failed"
)

// Store is the persistence side of the service.
type Store interface {
	InTx(ctx context.Context, fn func(tx repository.TxStore) error) error
	FindHistory(ctx context.Context, userID int64, kind domain.Kind, page, size int) (*domain.HistoryPage, error)
	FindLatest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, error)
	GetUserIDsPaginated(ctx context.Context, page, limit int) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)
}

// Cache holds the newest result per user and kind. SetLatest must keep an
// entry that is newer than rec.
type Cache interface {
	GetLatest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, error)
	SetLatest(ctx context.Context, rec *domain.Recommendation) error
	ClearUserCache(ctx context.Context, userID int64) error
}

type BodyGenerator interface {
	Recommend(ctx context.Context, req domain.BodyAnalysisRequest, userID int64) (*domain.BodyAnalysis, advisor.Meta, error)
}

type DietGenerator interface {
	Recommend(ctx context.Context, req domain.DietRequest, userID int64) (*domain.DietPlan, advisor.Meta, error)
}

type WorkoutGenerator interface {
	Recommend(ctx context.Context, req domain.WorkoutRequest, userID int64) (*domain.WorkoutPlan, advisor.Meta, error)
}

// Enricher post-processes a workout plan. It must not fail the request.
type Enricher interface {
	Enhance(ctx context.Context, plan *domain.WorkoutPlan) (*domain.WorkoutPlan, bool)
}

// Recorder receives per-request outcomes, typically for metrics.
type Recorder interface {
	ObserveRecommendation(kind domain.Kind, result string)
	ObserveEnrichment(applied bool)
}

type Generators struct {
	Body    BodyGenerator
	Diet    DietGenerator
	Workout WorkoutGenerator
	// Enricher is optional.
	Enricher Enricher
}

type Service struct {
	store    Store
	cache    Cache
	gens     Generators
	logger   *zap.Logger
	recorder Recorder
}

func NewService(store Store, cache Cache, gens Generators, logger *zap.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		gens:     gens,
		logger:   logger,
		recorder: recorder,
	}
}

// RecommendBody generates a body analysis and stores it.
func (s *Service) RecommendBody(ctx context.Context, userID int64, req domain.BodyAnalysisRequest) (*domain.Recommendation, error) {
	analysis, meta, err := s.gens.Body.Recommend(ctx, req, userID)
	if err != nil {
		return nil, s.generationFailed(domain.KindBody, userID, err)
	}
	return s.save(ctx, userID, domain.KindBody, contextLabel(domain.KindBody, req.Goal), analysis, meta)
}

// RecommendDiet generates a weekly diet plan and stores it.
func (s *Service) RecommendDiet(ctx context.Context, userID int64, req domain.DietRequest) (*domain.Recommendation, error) {
	plan, meta, err := s.gens.Diet.Recommend(ctx, req, userID)
	if err != nil {
		return nil, s.generationFailed(domain.KindDiet, userID, err)
	}
	return s.save(ctx, userID, domain.KindDiet, contextLabel(domain.KindDiet, req.Goal), plan, meta)
}

// RecommendWorkout generates a weekly workout plan, fills in tutorial links
// and stores it.
func (s *Service) RecommendWorkout(ctx context.Context, userID int64, req domain.WorkoutRequest) (*domain.Recommendation, error) {
	plan, meta, err := s.gens.Workout.Recommend(ctx, req, userID)
	if err != nil {
		return nil, s.generationFailed(domain.KindWorkout, userID, err)
	}
	if s.gens.Enricher != nil {
		var applied bool
		plan, applied = s.gens.Enricher.Enhance(context.WithoutCancel(ctx), plan)
		s.recorder.ObserveEnrichment(applied)
	}
	return s.save(ctx, userID, domain.KindWorkout, contextLabel(domain.KindWorkout, req.Goal), plan, meta)
}

func (s *Service) generationFailed(kind domain.Kind, userID int64, err error) error {
	result := ResultUnavailable
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		result = ResultInvalid
	case errors.Is(err, domain.ErrAIDisabled):
		result = ResultDisabled
	}
	s.recorder.ObserveRecommendation(kind, result)
	s.logger.Warn("recommendation generation failed",
		zap.String("kind", string(kind)),
		zap.Int64("user_id", userID),
		zap.String("result", result),
		zap.Error(err),
	)
	return err
}

// save opens the transaction only after generation has finished. It ignores
// caller cancellation and is bounded by persistTimeout instead.
func (s *Service) save(ctx context.Context, userID int64, kind domain.Kind, label string, result any, meta advisor.Meta) (*domain.Recommendation, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.recorder.ObserveRecommendation(kind, ResultPersistFailed)
		return nil, fmt.Errorf("encode %s result: %w", kind, err)
	}
	rec := &domain.Recommendation{
		UserID:           userID,
		Kind:             kind,
		ContextLabel:     label,
		Payload:          payload,
		Model:            meta.Model,
		PromptTokens:     meta.PromptTokens,
		CompletionTokens: meta.CompletionTokens,
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err = s.store.InTx(txCtx, func(tx repository.TxStore) error {
		if _, err := tx.GetUserByID(txCtx, userID); err != nil {
			return err
		}
		return tx.SaveRecommendation(txCtx, rec)
	})
	if err != nil {
		s.recorder.ObserveRecommendation(kind, ResultPersistFailed)
		s.logger.Error("failed to save recommendation",
			zap.String("kind", string(kind)),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	if cacheErr := s.cache.SetLatest(txCtx, rec); cacheErr != nil {
		s.logger.Warn("cache set error", zap.Int64("user_id", userID), zap.Error(cacheErr))
	}
	s.recorder.ObserveRecommendation(kind, ResultSuccess)
	s.logger.Info("recommendation saved",
		zap.String("kind", string(kind)),
		zap.Int64("user_id", userID),
		zap.Int64("recommendation_id", rec.ID),
		zap.String("request_id", meta.RequestID),
	)
	return rec, nil
}

func contextLabel(kind domain.Kind, goal string) string {
	if goal == "" {
		return string(kind)
	}
	return string(kind) + ": " + goal
}

// History returns a page of past results, newest first.
func (s *Service) History(ctx context.Context, userID int64, kind domain.Kind, page, size int) (*domain.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	} else if size > maxPageSize {
		size = maxPageSize
	}
	return s.store.FindHistory(ctx, userID, kind, page, size)
}

// Latest returns the newest result of a kind, from cache when possible. The
// second return reports a cache hit.
func (s *Service) Latest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, bool, error) {
	cached, err := s.cache.GetLatest(ctx, userID, kind)
	if err != nil {
		s.logger.Warn("cache get error", zap.Int64("user_id", userID), zap.Error(err))
	}
	if cached != nil {
		return cached, true, nil
	}

	rec, err := s.store.FindLatest(ctx, userID, kind)
	if err != nil {
		return nil, false, err
	}
	if cacheErr := s.cache.SetLatest(ctx, rec); cacheErr != nil {
		s.logger.Warn("cache set error", zap.Int64("user_id", userID), zap.Error(cacheErr))
	}
	return rec, false, nil
}

// ClearCache drops every cached latest result of a user.
func (s *Service) ClearCache(ctx context.Context, userID int64) error {
	return s.cache.ClearUserCache(ctx, userID)
}

// Overview returns the latest result of every kind. A failure for one kind
// is reported in its item and does not fail the others.
func (s *Service) Overview(ctx context.Context, userID int64) []domain.OverviewItem {
	items := make([]domain.OverviewItem, len(domain.Kinds))
	var wg sync.WaitGroup
	sem := make(chan struct{}, overviewKindsLimit)

	for i, kind := range domain.Kinds {
		wg.Add(1)
		go func(idx int, k domain.Kind) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items[idx] = s.overviewItem(ctx, userID, k)
		}(i, kind)
	}
	wg.Wait()
	return items
}

func (s *Service) overviewItem(ctx context.Context, userID int64, kind domain.Kind) domain.OverviewItem {
	rec, _, err := s.Latest(ctx, userID, kind)
	switch {
	case err == nil:
		return domain.OverviewItem{Kind: kind, Recommendation: rec, Status: domain.StatusFound}
	case errors.Is(err, domain.ErrRecommendationNotFound):
		return domain.OverviewItem{Kind: kind, Status: domain.StatusNotFound}
	default:
		s.logger.Warn("overview lookup failed",
			zap.String("kind", string(kind)), zap.Int64("user_id", userID), zap.Error(err))
		code, _ := CategorizeError(err)
		return domain.OverviewItem{Kind: kind, Status: domain.StatusFailed, Error: code}
	}
}

// GetBatchOverview returns the overview of every user on one page.
func (s *Service) GetBatchOverview(ctx context.Context, page, limit int) (*domain.BatchResponse, error) {
	start := time.Now()

	userIDs, err := s.store.GetUserIDsPaginated(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch user ids: %w", err)
	}

	totalUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count user: %w", err)
	}

	results := make([]domain.BatchUserResult, len(userIDs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, batchConcurrency)

	for i, userID := range userIDs {
		wg.Add(1)
		go func(idx int, uid int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.processUserForBatch(ctx, uid)
		}(i, userID)
	}
	wg.Wait()

	successCount := 0
	failedCount := 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalUsers: totalUsers,
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// A user fails when none of its kinds could be read.
func (s *Service) processUserForBatch(ctx context.Context, userID int64) domain.BatchUserResult {
	items := s.Overview(ctx, userID)
	for _, item := range items {
		if item.Status != domain.StatusFailed {
			return domain.BatchUserResult{UserID: userID, Overview: items, Status: domain.StatusSuccess}
		}
	}
	return domain.BatchUserResult{
		UserID:  userID,
		Status:  domain.StatusFailed,
		Error:   items[0].Error,
		Message: "could not read any recommendation",
	}
}

// CategorizeError maps an error to a stable code and a user-facing message.
func CategorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidKind):
		return "invalid_request", err.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found", "user not found"
	case errors.Is(err, domain.ErrRecommendationNotFound):
		return "recommendation_not_found", "no recommendation has been generated yet"
	case errors.Is(err, domain.ErrAIDisabled):
		return "ai_disabled", "AI recommendations are not configured on this server"
	case isTimeout(err):
		return "ai_timeout", "the AI provider did not answer in time"
	case errors.Is(err, domain.ErrAIUnavailable):
		return "ai_unavailable", "the AI provider is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out, please try again"
	}
	return "internal_error", "an unexpected error occurred"
}

func isTimeout(err error) bool {
	var callErr *model.CallError
	return errors.As(err, &callErr) && callErr.Kind == model.KindTimeout
}

type nopRecorder struct{}

func (nopRecorder) ObserveRecommendation(domain.Kind, string) {}
func (nopRecorder) ObserveEnrichment(bool)                    {}
