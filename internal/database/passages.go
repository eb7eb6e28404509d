package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PassageStore reads the typing passage corpus.
type PassageStore struct {
	pool *pgxpool.Pool
}

func NewPassageStore(pool *pgxpool.Pool) *PassageStore {
	return &PassageStore{pool: pool}
}

// ListPassages returns every stored passage in insertion order.
func (s *PassageStore) ListPassages(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM passages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	passages, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan passages: %w", err)
	}
	return passages, nil
}
