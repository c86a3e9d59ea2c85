package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/video"
)

const workoutSystemPrompt = `You are a strength and conditioning coach writing a weekly training plan.
Use common exercise names written in Korean. For every exercise add "searchQuery", a short English
YouTube search phrase for a form tutorial of that exercise. Avoid movements that aggravate listed injuries.
` + answerRules

var exerciseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":        map[string]any{"type": "string"},
		"sets":        flexible,
		"reps":        flexible,
		"rest":        flexible,
		"searchQuery": map[string]any{"type": "string"},
	},
	"required": []string{"name", "sets", "reps"},
}

var workoutSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
		"weeklyPlan": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":  "array",
				"items": exerciseSchema,
			},
		},
		"cautions":  flexible,
		"intensity": flexible,
	},
	"required": []string{"summary", "weeklyPlan"},
}

type WorkoutPlanner struct {
	sender Sender
	logger *zap.Logger
}

func NewWorkoutPlanner(sender Sender, logger *zap.Logger) *WorkoutPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkoutPlanner{sender: sender, logger: logger}
}

func (p *WorkoutPlanner) Recommend(ctx context.Context, req domain.WorkoutRequest, userID int64) (*domain.WorkoutPlan, Meta, error) {
	if err := validateRequest(req); err != nil {
		return nil, Meta{}, err
	}
	plan, meta, err := generate[domain.WorkoutPlan](ctx, p.sender, "workout plan", userID,
		workoutSystemPrompt, workoutPrompt(req), "workout_plan", workoutSchema)
	if err != nil {
		return nil, Meta{}, err
	}
	normalizeWorkout(plan)
	p.logger.Info("workout plan generated",
		zap.Int64("user_id", userID),
		zap.String("request_id", meta.RequestID),
		zap.Int("days", len(plan.WeeklyPlan)),
	)
	return plan, meta, nil
}

// normalizeWorkout trims names and gives every exercise without a link a
// search-results placeholder.
func normalizeWorkout(plan *domain.WorkoutPlan) {
	for day, exercises := range plan.WeeklyPlan {
		for i := range exercises {
			ex := &exercises[i]
			ex.Name = strings.TrimSpace(ex.Name)
			ex.SearchQuery = strings.TrimSpace(ex.SearchQuery)
			if strings.TrimSpace(ex.VideoURL) != "" {
				continue
			}
			q := ex.SearchQuery
			if q == "" {
				q = ex.Name
			}
			if q != "" {
				ex.VideoURL = video.SearchLink(q)
			}
		}
		plan.WeeklyPlan[day] = exercises
	}
}

func workoutPrompt(req domain.WorkoutRequest) string {
	var b strings.Builder
	b.WriteString("Body composition:\n")
	describeMetrics(&b, req.Metrics)
	b.WriteString("Goal: " + req.Goal + "\n")
	if req.Experience != "" {
		b.WriteString("Training experience: " + req.Experience + "\n")
	}
	days := req.DaysPerWeek
	if days == 0 {
		days = 3
	}
	fmt.Fprintf(&b, "Training days per week: %d\n", days)
	if req.SessionMinutes > 0 {
		fmt.Fprintf(&b, "Minutes per session: %d\n", req.SessionMinutes)
	}
	describeList(&b, "Available equipment", req.Equipment)
	describeList(&b, "Injuries", req.Injuries)
	describeSurvey(&b, req.Survey)
	return b.String()
}
