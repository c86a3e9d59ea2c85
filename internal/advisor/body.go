package advisor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

const bodySystemPrompt = `You are a certified sports nutritionist reading a body-composition report.
Assess the body type, list strengths and points to improve, and suggest a daily calorie intake and a realistic target weight.
` + answerRules

var bodySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":             map[string]any{"type": "string"},
		"bodyType":            map[string]any{"type": "string"},
		"strengths":           stringList(),
		"improvements":        stringList(),
		"recommendedCalories": flexible,
		"targetWeight":        flexible,
		"advice":              flexible,
	},
	"required": []string{"summary", "bodyType", "strengths", "improvements", "recommendedCalories"},
}

type BodyAnalyzer struct {
	sender Sender
	logger *zap.Logger
}

func NewBodyAnalyzer(sender Sender, logger *zap.Logger) *BodyAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BodyAnalyzer{sender: sender, logger: logger}
}

func (a *BodyAnalyzer) Recommend(ctx context.Context, req domain.BodyAnalysisRequest, userID int64) (*domain.BodyAnalysis, Meta, error) {
	if err := validateRequest(req); err != nil {
		return nil, Meta{}, err
	}
	analysis, meta, err := generate[domain.BodyAnalysis](ctx, a.sender, "body analysis", userID,
		bodySystemPrompt, bodyPrompt(req), "body_analysis", bodySchema)
	if err != nil {
		return nil, Meta{}, err
	}
	a.logger.Info("body analysis generated",
		zap.Int64("user_id", userID),
		zap.String("request_id", meta.RequestID),
		zap.Int("attempts", meta.Attempts),
	)
	return analysis, meta, nil
}

func bodyPrompt(req domain.BodyAnalysisRequest) string {
	var b strings.Builder
	b.WriteString("Body composition:\n")
	describeMetrics(&b, req.Metrics)
	if req.Goal != "" {
		b.WriteString("Goal: " + req.Goal + "\n")
	}
	describeSurvey(&b, req.Survey)
	return b.String()
}
