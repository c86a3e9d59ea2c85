package seeds

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWeightedChoice(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := map[string]int{}
	for range 1000 {
		counts[weightedChoice(rng, []string{"a", "b"}, []float64{0.9, 0.1})]++
	}
	assert.Greater(t, counts["a"], counts["b"])
	assert.Equal(t, 1000, counts["a"]+counts["b"])
}

func TestWeightedChoiceSkipsZeroWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for range 100 {
		assert.Equal(t, "b", weightedChoice(rng, []string{"a", "b"}, []float64{0, 1}))
	}
}

func TestRunStepsLogsEachStep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var ran []string
	steps := []step{
		{"first", func(context.Context) error { ran = append(ran, "first"); return nil }},
		{"second", func(context.Context) error { ran = append(ran, "second"); return nil }},
	}

	require.NoError(t, runSteps(context.Background(), zap.New(core).Named("seed"), steps))

	assert.Equal(t, []string{"first", "second"}, ran)
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "seeding", entries[0].Message)
	assert.Equal(t, "first", entries[0].ContextMap()["step"])
	assert.Equal(t, "seed", entries[0].LoggerName)
	for _, e := range entries {
		assert.NotContains(t, e.Message, "[")
	}
}

func TestRunStepsStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var ran int
	steps := []step{
		{"fails", func(context.Context) error { ran++; return boom }},
		{"never", func(context.Context) error { ran++; return nil }},
	}

	err := runSteps(context.Background(), zap.NewNop(), steps)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fails")
	assert.Equal(t, 1, ran)
}
