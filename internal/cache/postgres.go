package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/rharish101/dilbert-viewer/internal/db/migrations"
)

// PostgresStore keeps entries in the cache_entries table. When maxEntries is
// positive, each write trims the oldest rows in the same transaction.
type PostgresStore struct {
	db         *sql.DB
	maxEntries int
}

// NewPostgresStore opens a pool of at most maxConns connections to dsn and
// applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string, maxConns, maxEntries int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := migrations.Up(ctx, db, migrations.Postgres); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresStore{db: db, maxEntries: maxEntries}, nil
}

// Get returns nil, false, nil if the key is absent.
func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = $1`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to get cache entry %q: %v", ErrStoreUnavailable, key, err)
	}
	return value, true, nil
}

// Set upserts the entry and refreshes its updated_at.
func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert cache entry %q: %v", ErrStoreUnavailable, key, err)
	}

	if p.maxEntries > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM cache_entries
			WHERE key NOT IN (
				SELECT key FROM cache_entries
				ORDER BY updated_at DESC, key
				LIMIT $1
			)
		`, p.maxEntries)
		if err != nil {
			return fmt.Errorf("%w: failed to trim cache entries: %v", ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
