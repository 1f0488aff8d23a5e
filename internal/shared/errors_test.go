package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	assert.NoError(t, MapPgError(nil))
	assert.ErrorIs(t, MapPgError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, MapPgError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), ErrAlreadyExists)

	other := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(other), MapPgError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, MapPgError(plain))
}
