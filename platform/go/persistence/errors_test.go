package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapWriteError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tenants_slug_unique"})
	require.ErrorIs(t, mapWriteError(unique), ErrConflict)

	fk := &pgconn.PgError{Code: "23503"}
	require.ErrorIs(t, mapWriteError(fk), ErrMissingParent)

	other := errors.New("connection reset")
	require.Equal(t, other, mapWriteError(other))

	check := &pgconn.PgError{Code: "23514"}
	require.Equal(t, error(check), mapWriteError(check))
}
