package db

import (
	"context"
	"database/sql"
)

// Database is the subset of *sql.DB the DAOs use.
type Database interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// DatabaseGetter returns a database handle. Used to defer retrieval until first use.
type DatabaseGetter func() Database
