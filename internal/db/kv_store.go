package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
)

// DBTX is the subset of pgxpool.Pool used here; pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KVStore is a loyalty.Storage on a single key/value table.
type KVStore struct {
	db DBTX
}

func NewKVStore(db DBTX) *KVStore {
	return &KVStore{db: db}
}

// EnsureSchema creates the counters table when missing.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS loyalty_counters (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create loyalty_counters: %w", err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `
		SELECT value
		FROM loyalty_counters
		WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", loyalty.ErrNotFound
		}
		return "", fmt.Errorf("select loyalty counter: %w", err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO loyalty_counters (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert loyalty counter: %w", err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM loyalty_counters
		WHERE key = $1
	`, key)
	if err != nil {
		return fmt.Errorf("delete loyalty counter: %w", err)
	}
	return nil
}
