package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS match_runs (
	id         UUID PRIMARY KEY,
	kind       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS match_runs_created_at_idx ON match_runs (created_at DESC);
`

// PgStore keeps runs in PostgreSQL. The whole run is stored as JSON; the
// id, kind and created_at columns exist for lookup and retention.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an open pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Migrate creates the runs table if it does not exist.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate run store: %w", err)
	}
	return nil
}

func (s *PgStore) Save(ctx context.Context, run *Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO match_runs (id, kind, created_at, payload) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		run.ID, string(run.Kind), run.CreatedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.scanOne(ctx, `SELECT payload FROM match_runs WHERE id = $1`, id)
}

func (s *PgStore) Latest(ctx context.Context) (*Run, error) {
	return s.scanOne(ctx, `SELECT payload FROM match_runs ORDER BY created_at DESC LIMIT 1`)
}

func (s *PgStore) scanOne(ctx context.Context, query string, args ...any) (*Run, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

func (s *PgStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM match_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Close() {
	s.pool.Close()
}
