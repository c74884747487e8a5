package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DraftSchema creates the table backing PostgresSlotStore.
const DraftSchema = `
CREATE TABLE IF NOT EXISTS wizard_drafts (
	client_id  TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSlotStore keeps draft slots in the wizard_drafts table.
type PostgresSlotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSlotStore creates a PostgreSQL-backed slot store.
func NewPostgresSlotStore(pool *pgxpool.Pool) *PostgresSlotStore {
	return &PostgresSlotStore{pool: pool}
}

func (s *PostgresSlotStore) Get(ctx context.Context, key string) (string, error) {
	var payload string
	err := s.pool.QueryRow(ctx, `
		SELECT payload::text FROM wizard_drafts WHERE client_id = $1
	`, key).Scan(&payload)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to get draft: %w", err)
	}
	return payload, nil
}

func (s *PostgresSlotStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wizard_drafts (client_id, payload, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (client_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, key, value)

	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

func (s *PostgresSlotStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wizard_drafts WHERE client_id = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (s *PostgresSlotStore) Backend() string { return "postgres" }
