package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version int
	name    string
	up      map[Dialect][]string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_users",
		up: map[Dialect][]string{
			Postgres: {`
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(100) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL DEFAULT '',
					email VARCHAR(255) NOT NULL DEFAULT '',
					role VARCHAR(20) NOT NULL DEFAULT 'usuario',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)`,
				`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
			},
			SQLite: {`
				CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					username TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					role TEXT NOT NULL DEFAULT 'usuario',
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
			},
		},
	},
	{
		version: 2,
		name:    "create_news",
		up: map[Dialect][]string{
			Postgres: {`
				CREATE TABLE IF NOT EXISTS news (
					id BIGSERIAL PRIMARY KEY,
					title VARCHAR(500) NOT NULL,
					body TEXT NOT NULL,
					author VARCHAR(100) NOT NULL,
					kind VARCHAR(20) NOT NULL DEFAULT 'general',
					image_url TEXT NOT NULL DEFAULT '',
					priority VARCHAR(20) NOT NULL DEFAULT '',
					event_date VARCHAR(100) NOT NULL DEFAULT '',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)`,
				`CREATE INDEX IF NOT EXISTS idx_news_created_at ON news(created_at DESC)`,
			},
			SQLite: {`
				CREATE TABLE IF NOT EXISTS news (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					body TEXT NOT NULL,
					author TEXT NOT NULL,
					kind TEXT NOT NULL DEFAULT 'general',
					image_url TEXT NOT NULL DEFAULT '',
					priority TEXT NOT NULL DEFAULT '',
					event_date TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_news_created_at ON news(created_at DESC)`,
			},
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) (applied int, err error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmts, ok := m.up[dialect]
		if !ok {
			return applied, fmt.Errorf("migration %d has no %s variant", m.version, dialect)
		}
		if err := apply(ctx, db, m, stmts); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, m migration, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
		m.version, m.name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, 0 when none
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// LatestVersion is the version Migrate brings a database to
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}
