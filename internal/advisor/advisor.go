// Package advisor turns body-composition, diet and workout requests into
// model prompts and parses the typed answers.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/model"
)

// Sender is the part of model.Client the generators need.
type Sender interface {
	NewChatRequest(messages []model.Message, format *model.ResponseFormat) model.ChatRequest
	Send(ctx context.Context, req model.Request, out any) (*model.Response, error)
}

// Meta describes the call that produced a result.
type Meta struct {
	RequestID        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Attempts         int
}

// ProviderError is returned when the model produced no usable answer. It
// matches domain.ErrAIDisabled or domain.ErrAIUnavailable with errors.Is, and
// the underlying client error with errors.As.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.sentinel(), e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

// Disabled reports whether the call was skipped because no API key is set.
func (e *ProviderError) Disabled() bool {
	return errors.Is(e.Err, model.ErrDisabled)
}

func (e *ProviderError) sentinel() error {
	if e.Disabled() {
		return domain.ErrAIDisabled
	}
	return domain.ErrAIUnavailable
}

func IsProviderError(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func generate[T any](ctx context.Context, sender Sender, op string, userID int64, system, user, schemaName string, schema map[string]any) (*T, Meta, error) {
	body := sender.NewChatRequest(
		[]model.Message{model.SystemMessage(system), model.UserMessage(user)},
		model.SchemaFormat(schemaName, schema),
	)
	var out T
	resp, err := sender.Send(ctx, model.Request{Path: model.ChatCompletionsPath, Body: body, UserID: userID}, &out)
	if err != nil {
		return nil, Meta{}, &ProviderError{Op: op, Err: err}
	}
	if resp == nil {
		return nil, Meta{}, &ProviderError{Op: op, Err: errors.New("no response")}
	}
	return &out, Meta{
		RequestID:        resp.RequestID,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Attempts:         resp.Attempts,
	}, nil
}

const answerRules = `Answer with a single JSON object that follows the provided schema.
Write every text value in Korean. Do not wrap the JSON in markdown.`

func describeMetrics(b *strings.Builder, m domain.BodyMetrics) {
	fmt.Fprintf(b, "- gender: %s\n", m.Gender)
	fmt.Fprintf(b, "- age: %d\n", m.Age)
	fmt.Fprintf(b, "- height: %.1f cm\n", m.HeightCm)
	fmt.Fprintf(b, "- weight: %.1f kg\n", m.WeightKg)
	fmt.Fprintf(b, "- BMI: %.1f\n", m.BMI())
	if m.BodyFatPercent > 0 {
		fmt.Fprintf(b, "- body fat: %.1f %%\n", m.BodyFatPercent)
	}
	if m.SkeletalMuscleKg > 0 {
		fmt.Fprintf(b, "- skeletal muscle mass: %.1f kg\n", m.SkeletalMuscleKg)
	}
}

func describeSurvey(b *strings.Builder, survey map[string]string) {
	if len(survey) == 0 {
		return
	}
	keys := make([]string, 0, len(survey))
	for k := range survey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("Survey answers:\n")
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, survey[k])
	}
}

func describeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, ", "))
}

// flexible is a schema fragment for fields the model may answer as text or
// as structured JSON.
var flexible = map[string]any{"type": []string{"string", "number", "object", "array"}}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}
