package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("record already exists")
	// ErrMissingParent is returned when a write references a row that does not exist.
	ErrMissingParent = errors.New("referenced record not found")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapWriteError converts constraint violations into the package sentinels.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrMissingParent
	}
	return err
}
