package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUndefinedTableErr reports whether err is postgres complaining about a
// missing table or column, i.e. migrations have not been applied.
func IsUndefinedTableErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42703 = undefined_column
		// 42P01 = undefined_table
		return pgErr.Code == "42703" || pgErr.Code == "42P01"
	}
	return false
}
