package seeds

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

type step struct {
	name string
	run  func(ctx context.Context) error
}

func Setup(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	rng := rand.New(rand.NewSource(42))

	return runSteps(ctx, logger, []step{
		// Truncate existing data before insert
		{"truncate existing data", func(ctx context.Context) error {
			_, err := pool.Exec(ctx, `
				TRUNCATE recommendations, users RESTART IDENTITY CASCADE
			`)
			return err
		}},
		{"insert users", func(ctx context.Context) error {
			return seedUsers(ctx, pool, rng, 20)
		}},
		{"insert sample body analyses", func(ctx context.Context) error {
			return seedBodyAnalyses(ctx, pool, rng, 5)
		}},
	})
}

func runSteps(ctx context.Context, logger *zap.Logger, steps []step) error {
	for _, s := range steps {
		logger.Info("seeding", zap.String("step", s.name))
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	logger.Info("seeding complete", zap.Int("steps", len(steps)))
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, n int) error {
	names := []string{"민준", "서연", "도윤", "지우", "하준", "서윤", "시우", "하은", "주원", "지유"}
	genders := []string{"male", "female"}
	genderWeights := []float64{0.5, 0.5}

	rows := []string{}
	args := []any{}

	for i := range n {
		nickname := fmt.Sprintf("%s%d", names[i%len(names)], i+1)
		gender := weightedChoice(rng, genders, genderWeights)
		birthYear := time.Now().Year() - (rng.Intn(45) + 18)
		createdAt := time.Now().AddDate(0, 0, -rng.Intn(365))

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, nickname, gender, birthYear, createdAt)
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO users (nickname, gender, birth_year, created_at) VALUES " + strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}

// seedBodyAnalyses gives the first n users one stored analysis so the read
// endpoints have data before any model call is made.
func seedBodyAnalyses(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, n int) error {
	bodyTypes := []string{"표준", "마른 비만", "근육형", "과체중"}
	weights := []float64{0.4, 0.2, 0.2, 0.2}

	rows := []string{}
	args := []any{}

	for i := range n {
		bodyType := weightedChoice(rng, bodyTypes, weights)
		calories := 1800 + rng.Intn(8)*100
		payload, err := json.Marshal(domain.BodyAnalysis{
			Summary:             "샘플 체성분 분석 결과입니다.",
			BodyType:            bodyType,
			Strengths:           []string{"규칙적인 생활"},
			Improvements:        []string{"근력 운동 빈도 늘리기"},
			RecommendedCalories: domain.Text(fmt.Sprintf("%d kcal", calories)),
		})
		if err != nil {
			return fmt.Errorf("marshal sample analysis: %w", err)
		}
		createdAt := time.Now().AddDate(0, 0, -rng.Intn(30))

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, int64(i+1), string(domain.KindBody), "body: seed", payload, "seed", createdAt)
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO recommendations (user_id, kind, context_label, payload, model, created_at) VALUES " +
		strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
