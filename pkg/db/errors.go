package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUndefinedTable = "42P01"

// IsUndefinedTable reports whether err means the queried relation is missing.
// Both Postgres drivers and the SQLite dialect are recognised.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgUndefinedTable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUndefinedTable
	}
	return strings.Contains(err.Error(), "no such table")
}
