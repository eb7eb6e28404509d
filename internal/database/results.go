package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/typerace/internal/models"
)

// ResultStore persists finished races.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// InsertRaceResults writes a batch of races and their standings in a single
// transaction. Races already stored are skipped, so redelivery is harmless.
func (s *ResultStore) InsertRaceResults(ctx context.Context, results []models.RaceResult) error {
	if len(results) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, res := range results {
			if err := insertRaceResultTx(ctx, tx, res); err != nil {
				return fmt.Errorf("race %s: %w", res.RaceID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert race results: %w", err)
	}
	return nil
}

func insertRaceResultTx(ctx context.Context, tx pgx.Tx, res models.RaceResult) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO race_results (race_id, room_id, passage, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (race_id) DO NOTHING
	`, res.RaceID, res.RoomID, res.Text, res.StartedAt, res.FinishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range res.Standings {
		batch.Queue(`
			INSERT INTO race_standings (race_id, rank, connection_id, player_name, wpm)
			VALUES ($1, $2, $3, $4, $5)
		`, res.RaceID, st.Rank, st.ConnectionID, st.PlayerName, st.WPM)
	}
	return tx.SendBatch(ctx, batch).Close()
}
