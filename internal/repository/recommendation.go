package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

const recommendationColumns = `id, user_id, kind, context_label, payload, model, prompt_tokens, completion_tokens, created_at`

func saveRecommendation(ctx context.Context, q querier, rec *domain.Recommendation) error {
	err := q.QueryRow(ctx,
		`INSERT INTO recommendations
			(user_id, kind, context_label, payload, model, prompt_tokens, completion_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		rec.UserID, string(rec.Kind), rec.ContextLabel, []byte(rec.Payload),
		rec.Model, rec.PromptTokens, rec.CompletionTokens,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s recommendation for user %d: %w", rec.Kind, rec.UserID, err)
	}
	return nil
}

// FindHistory returns one page of a user's results of the given kind, newest
// first. Page is 1-based.
func (r *Repository) FindHistory(ctx context.Context, userID int64, kind domain.Kind, page, size int) (*domain.HistoryPage, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s history for user %d: %w", kind, userID, err)
	}

	offset := (page - 1) * size
	rows, err := r.pool.Query(ctx,
		`SELECT `+recommendationColumns+`
		 FROM recommendations
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		userID, string(kind), size, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s history for user %d: %w", kind, userID, err)
	}
	defer rows.Close()

	items := []domain.Recommendation{}
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s history: %w", kind, err)
	}

	return &domain.HistoryPage{Items: items, Page: page, Size: size, Total: total}, nil
}

// FindLatest returns the newest result of the given kind.
func (r *Repository) FindLatest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recommendationColumns+`
		 FROM recommendations
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID, string(kind),
	)
	rec, err := scanRecommendation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecommendationNotFound
		}
		return nil, fmt.Errorf("query latest %s for user %d: %w", kind, userID, err)
	}
	return rec, nil
}

func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var (
		rec     domain.Recommendation
		kind    string
		payload []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &kind, &rec.ContextLabel, &payload,
		&rec.Model, &rec.PromptTokens, &rec.CompletionTokens, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan recommendation: %w", err)
	}
	rec.Kind = domain.Kind(kind)
	rec.Payload = payload
	return &rec, nil
}
