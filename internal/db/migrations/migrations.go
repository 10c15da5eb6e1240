// Package migrations embeds the cache schema for every SQL backend and
// applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialects supported by Up. The value doubles as the embedded directory name.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

var dialects = map[string]goose.Dialect{
	Postgres: goose.DialectPostgres,
	SQLite:   goose.DialectSQLite3,
}

// Up applies all pending migrations for dialect to db.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	gooseDialect, ok := dialects[dialect]
	if !ok {
		return fmt.Errorf("unknown migration dialect %q", dialect)
	}

	dir, err := fs.Sub(files, dialect)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", dialect, err)
	}
	for _, r := range results {
		slog.Info("[MIGRATIONS] applied migration",
			"dialect", dialect,
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return nil
}
