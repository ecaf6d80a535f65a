package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var defaultDB Database

const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS digest_cache_tab (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	location VARCHAR(4096) NOT NULL,
	algorithms VARCHAR(128) NOT NULL,
	file_size BIGINT NOT NULL,
	file_modtime BIGINT NOT NULL,
	digests VARCHAR(2048) NOT NULL,
	create_time BIGINT NOT NULL,
	update_time BIGINT NOT NULL
);`

	createIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_digest_cache_tab_location
ON digest_cache_tab(location, algorithms);`
)

// Open opens (creating if needed) the sqlite database at path and ensures the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	if err := EnsureSchema(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// SetDefault assigns the global database instance.
func SetDefault(db Database) {
	defaultDB = db
}

// Default returns the configured global database instance.
func Default() Database {
	return defaultDB
}

// EnsureSchema initialises required tables and indexes.
func EnsureSchema(ctx context.Context, db Database) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create digest cache table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("create digest cache index: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
