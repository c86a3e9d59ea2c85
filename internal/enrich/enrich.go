// Package enrich replaces placeholder video links in workout plans with
// direct tutorial links.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/video"
)

const (
	category      = "workout"
	watchMarker   = "watch?v="
	englishSuffix = " tutorial proper form"
	nativeSuffix  = " 운동 자세 tutorial"
)

// VideoFinder resolves a search query to a video link. The result may be a
// direct watch link or a search-results link.
type VideoFinder interface {
	FindVideoURL(ctx context.Context, query, category, label string) (string, error)
}

type Enhancer struct {
	finder VideoFinder
	logger *zap.Logger
}

// NewEnhancer builds an Enhancer. A nil finder disables enrichment.
func NewEnhancer(finder VideoFinder, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{finder: finder, logger: logger}
}

// Enhance returns a copy of plan with direct video links filled in, and
// whether any link was replaced. Any failure yields the original plan and
// false; the input is never modified.
func (e *Enhancer) Enhance(ctx context.Context, plan *domain.WorkoutPlan) (result *domain.WorkoutPlan, applied bool) {
	if e == nil || e.finder == nil || plan == nil {
		return plan, false
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("video enrichment panicked", zap.Any("panic", r))
			result, applied = plan, false
		}
	}()

	out, replaced, err := e.enhance(ctx, plan)
	if err != nil {
		e.logger.Warn("video enrichment failed, keeping original plan", zap.Error(err))
		return plan, false
	}
	if replaced == 0 {
		return plan, false
	}
	e.logger.Debug("video enrichment applied", zap.Int("replaced", replaced))
	return out, true
}

func (e *Enhancer) enhance(ctx context.Context, plan *domain.WorkoutPlan) (*domain.WorkoutPlan, int, error) {
	out := plan.Clone()
	replaced := 0
	for day, exercises := range out.WeeklyPlan {
		for i := range exercises {
			ex := &exercises[i]
			query, ok := SearchQuery(*ex)
			if !ok {
				e.logger.Debug("no search query for exercise", zap.String("day", day), zap.Int("index", i))
				continue
			}
			link, err := e.finder.FindVideoURL(ctx, query, category, ex.Name)
			if err != nil {
				return nil, 0, fmt.Errorf("find video for %q: %w", query, err)
			}
			if strings.Contains(link, watchMarker) {
				ex.VideoURL = link
				replaced++
			}
		}
	}
	return out, replaced, nil
}

// SearchQuery derives the lookup query for an exercise. An AI supplied query
// is used as is unless it is a link; otherwise a known movement becomes an
// English tutorial query and anything else a Korean one.
func SearchQuery(ex domain.Exercise) (string, bool) {
	if q := strings.TrimSpace(ex.SearchQuery); q != "" && !looksLikeLink(q) {
		return q, true
	}
	name := strings.TrimSpace(ex.Name)
	if name == "" {
		return "", false
	}
	if en, ok := EnglishName(name); ok {
		return en + englishSuffix, true
	}
	return name + nativeSuffix, true
}

func looksLikeLink(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "://") ||
		strings.HasPrefix(lower, "www.") ||
		strings.Contains(lower, "youtube.com") ||
		strings.Contains(lower, "search_query=") ||
		video.IsSearchLink(s)
}
