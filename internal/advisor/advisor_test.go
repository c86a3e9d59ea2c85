package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/model"
)

type fakeSender struct {
	content string
	err     error
	calls   int
	last    model.Request
}

func (f *fakeSender) NewChatRequest(messages []model.Message, format *model.ResponseFormat) model.ChatRequest {
	return model.ChatRequest{Model: "test-model", Messages: messages, ResponseFormat: format}
}

func (f *fakeSender) Send(ctx context.Context, req model.Request, out any) (*model.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if err := model.DecodeJSON(f.content, out); err != nil {
		return nil, &model.CallError{Kind: model.KindDecode, Err: err}
	}
	return &model.Response{
		RequestID: "req-1",
		Content:   f.content,
		Model:     "test-model",
		Usage:     model.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		Attempts:  1,
	}, nil
}

func testMetrics() domain.BodyMetrics {
	return domain.BodyMetrics{Gender: "male", Age: 28, HeightCm: 175, WeightKg: 72, BodyFatPercent: 18}
}

func TestBodyAnalyzerParsesFlexibleFields(t *testing.T) {
	sender := &fakeSender{content: "```json\n" + `{
		"summary": "균형 잡힌 체형",
		"bodyType": "표준",
		"strengths": ["근육량 양호"],
		"improvements": ["체지방 감량"],
		"recommendedCalories": 2300,
		"targetWeight": "70kg",
		"advice": {"sleep": "7시간 이상"}
	}` + "\n```"}
	analyzer := NewBodyAnalyzer(sender, zaptest.NewLogger(t))

	got, meta, err := analyzer.Recommend(context.Background(), domain.BodyAnalysisRequest{
		Metrics: testMetrics(),
		Goal:    "체지방 감량",
		Survey:  map[string]string{"sleep": "6h", "activity": "low"},
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, "표준", got.BodyType)
	calories, ok := got.RecommendedCalories.Float()
	require.True(t, ok)
	assert.Equal(t, 2300.0, calories)
	assert.Equal(t, "70kg", got.TargetWeight.String())
	assert.True(t, got.Advice.IsStructured())

	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, "test-model", meta.Model)
	assert.Equal(t, 10, meta.PromptTokens)
	assert.Equal(t, 20, meta.CompletionTokens)

	assert.Equal(t, int64(7), sender.last.UserID)
	assert.Equal(t, model.ChatCompletionsPath, sender.last.Path)
	require.Len(t, sender.last.Body.Messages, 2)
	prompt := sender.last.Body.Messages[1].Content
	assert.Contains(t, prompt, "height: 175.0 cm")
	assert.Contains(t, prompt, "Goal: 체지방 감량")
	assert.Less(t, strings.Index(prompt, "- activity: low"), strings.Index(prompt, "- sleep: 6h"))
	require.NotNil(t, sender.last.Body.ResponseFormat)
	assert.Equal(t, "body_analysis", sender.last.Body.ResponseFormat.JSONSchema.Name)
}

func TestRecommendRejectsInvalidRequestWithoutCalling(t *testing.T) {
	sender := &fakeSender{content: `{}`}
	planner := NewDietPlanner(sender, nil)

	_, _, err := planner.Recommend(context.Background(), domain.DietRequest{
		Metrics: domain.BodyMetrics{Gender: "unknown", Age: 30, HeightCm: 170, WeightKg: 60},
		Goal:    "유지",
	}, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, sender.calls)
}

func TestRecommendDisabledProvider(t *testing.T) {
	sender := &fakeSender{err: model.ErrDisabled}
	analyzer := NewBodyAnalyzer(sender, nil)

	got, _, err := analyzer.Recommend(context.Background(), domain.BodyAnalysisRequest{Metrics: testMetrics()}, 1)

	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, domain.ErrAIDisabled)
	assert.ErrorIs(t, err, model.ErrDisabled)
	assert.NotErrorIs(t, err, domain.ErrAIUnavailable)
}

func TestRecommendUnavailableProvider(t *testing.T) {
	sender := &fakeSender{err: &model.CallError{Kind: model.KindHTTPStatus, StatusCode: 503, Attempts: 3}}
	planner := NewWorkoutPlanner(sender, nil)

	got, _, err := planner.Recommend(context.Background(), domain.WorkoutRequest{Metrics: testMetrics(), Goal: "근력"}, 1)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAIUnavailable)
	assert.NotErrorIs(t, err, domain.ErrAIDisabled)

	var callErr *model.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, 503, callErr.StatusCode)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "workout plan", provErr.Op)
	assert.False(t, provErr.Disabled())
}

func TestRecommendMalformedModelOutput(t *testing.T) {
	sender := &fakeSender{content: "죄송합니다. 식단을 만들 수 없습니다."}
	planner := NewDietPlanner(sender, nil)

	got, _, err := planner.Recommend(context.Background(), domain.DietRequest{Metrics: testMetrics(), Goal: "감량"}, 1)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAIUnavailable)
	var callErr *model.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, model.KindDecode, callErr.Kind)
}

func TestDietPlanMeals(t *testing.T) {
	sender := &fakeSender{content: `{
		"summary": "고단백 식단",
		"dailyCalories": "2000kcal",
		"macros": {"protein": 150, "carbs": 200, "fat": 60},
		"weeklyMeals": {
			"monday": {"breakfast": "오트밀", "lunch": {"menu": ["현미밥", "닭가슴살"]}, "dinner": "연어 샐러드", "snack": "그릭요거트"}
		},
		"tips": ["물을 충분히 드세요"]
	}`}
	planner := NewDietPlanner(sender, nil)

	got, _, err := planner.Recommend(context.Background(), domain.DietRequest{
		Metrics:   testMetrics(),
		Goal:      "근육 증가",
		Allergies: []string{"땅콩"},
	}, 3)
	require.NoError(t, err)

	monday, ok := got.WeeklyMeals["monday"]
	require.True(t, ok)
	assert.Equal(t, "오트밀", monday.Breakfast.String())
	assert.True(t, monday.Lunch.IsStructured())
	assert.True(t, got.Macros.IsStructured())
	assert.Contains(t, sender.last.Body.Messages[1].Content, "Allergies: 땅콩")
	assert.Contains(t, sender.last.Body.Messages[1].Content, "Main meals per day: 3")
}

func TestWorkoutPlanAddsSearchPlaceholders(t *testing.T) {
	sender := &fakeSender{content: `{
		"summary": "주 3회 전신 운동",
		"weeklyPlan": {
			"monday": [
				{"name": " 스쿼트 ", "sets": 4, "reps": "8-10", "rest": "90초", "searchQuery": "squat form"},
				{"name": "플랭크", "sets": 3, "reps": "60초"},
				{"name": "데드리프트", "sets": 3, "reps": 5, "videoUrl": "https://www.youtube.com/watch?v=abc"}
			]
		},
		"intensity": "중간"
	}`}
	planner := NewWorkoutPlanner(sender, nil)

	got, _, err := planner.Recommend(context.Background(), domain.WorkoutRequest{
		Metrics:     testMetrics(),
		Goal:        "근력 향상",
		Experience:  "beginner",
		DaysPerWeek: 3,
	}, 5)
	require.NoError(t, err)

	monday := got.WeeklyPlan["monday"]
	require.Len(t, monday, 3)
	assert.Equal(t, "스쿼트", monday[0].Name)
	assert.Equal(t, "https://www.youtube.com/results?search_query=squat+form", monday[0].VideoURL)
	assert.Contains(t, monday[1].VideoURL, "/results?search_query=")
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", monday[2].VideoURL)

	sets, ok := monday[0].Sets.Float()
	require.True(t, ok)
	assert.Equal(t, 4.0, sets)
	assert.Equal(t, "8-10", monday[0].Reps.String())
	assert.Contains(t, sender.last.Body.Messages[1].Content, "Training experience: beginner")
}

func TestWorkoutRequestRejectsUnknownExperience(t *testing.T) {
	sender := &fakeSender{content: `{}`}
	planner := NewWorkoutPlanner(sender, nil)

	_, _, err := planner.Recommend(context.Background(), domain.WorkoutRequest{
		Metrics:    testMetrics(),
		Goal:       "근력",
		Experience: "expert",
	}, 1)

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, sender.calls)
}
