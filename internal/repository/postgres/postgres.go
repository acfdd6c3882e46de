// Package postgres implements the entitlement, usage and preference repositories on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
)

// querier is the subset of *sqlx.DB the repositories use.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
