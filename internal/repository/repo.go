package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStore is the work allowed inside InTx.
type TxStore interface {
	GetUserByID(ctx context.Context, userID int64) (*domain.User, error)
	SaveRecommendation(ctx context.Context, rec *domain.Recommendation) error
}

type Tx struct {
	q querier
}

func (t *Tx) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	return getUserByID(ctx, t.q, userID)
}

func (t *Tx) SaveRecommendation(ctx context.Context, rec *domain.Recommendation) error {
	return saveRecommendation(ctx, t.q, rec)
}

// InTx runs fn in a single transaction. It commits when fn returns nil and
// rolls back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&Tx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
