package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

const dietSystemPrompt = `You are a clinical dietitian building a one-week meal plan.
Respect allergies strictly. Give a daily calorie target, a macro split, and breakfast, lunch, dinner and snack for each day from Monday to Sunday.
` + answerRules

var mealsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"breakfast": flexible,
		"lunch":     flexible,
		"dinner":    flexible,
		"snack":     flexible,
	},
}

var dietSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":       map[string]any{"type": "string"},
		"dailyCalories": flexible,
		"macros":        flexible,
		"weeklyMeals": map[string]any{
			"type":                 "object",
			"additionalProperties": mealsSchema,
		},
		"tips": stringList(),
	},
	"required": []string{"summary", "dailyCalories", "weeklyMeals"},
}

type DietPlanner struct {
	sender Sender
	logger *zap.Logger
}

func NewDietPlanner(sender Sender, logger *zap.Logger) *DietPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DietPlanner{sender: sender, logger: logger}
}

func (p *DietPlanner) Recommend(ctx context.Context, req domain.DietRequest, userID int64) (*domain.DietPlan, Meta, error) {
	if err := validateRequest(req); err != nil {
		return nil, Meta{}, err
	}
	plan, meta, err := generate[domain.DietPlan](ctx, p.sender, "diet plan", userID,
		dietSystemPrompt, dietPrompt(req), "diet_plan", dietSchema)
	if err != nil {
		return nil, Meta{}, err
	}
	p.logger.Info("diet plan generated",
		zap.Int64("user_id", userID),
		zap.String("request_id", meta.RequestID),
		zap.Int("days", len(plan.WeeklyMeals)),
	)
	return plan, meta, nil
}

func dietPrompt(req domain.DietRequest) string {
	var b strings.Builder
	b.WriteString("Body composition:\n")
	describeMetrics(&b, req.Metrics)
	b.WriteString("Goal: " + req.Goal + "\n")
	meals := req.MealsPerDay
	if meals == 0 {
		meals = 3
	}
	fmt.Fprintf(&b, "Main meals per day: %d\n", meals)
	describeList(&b, "Allergies", req.Allergies)
	describeList(&b, "Food preferences", req.Preferences)
	describeSurvey(&b, req.Survey)
	return b.String()
}
