package quotes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func pgError(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, Message: "boom"})
}

func TestWrapConflict(t *testing.T) {
	// serialization and deadlock failures become retryable conflicts
	assert.ErrorIs(t, wrapConflict(pgError("40001")), ErrConflict)
	assert.ErrorIs(t, wrapConflict(pgError("40P01")), ErrConflict)

	// a unique violation on quote_number is a taken number, never retried
	err := wrapConflict(pgError("23505"))
	assert.ErrorIs(t, err, ErrNumberTaken)
	assert.NotErrorIs(t, err, ErrConflict)

	// anything else passes through untouched
	other := pgError("23503")
	assert.Equal(t, other, wrapConflict(other))
	plain := errors.New("connection reset")
	assert.Equal(t, plain, wrapConflict(plain))
	assert.NoError(t, wrapConflict(nil))
}
