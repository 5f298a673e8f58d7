package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestOverlapViolationDetection(t *testing.T) {
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "bookings_no_overlap"}

	require.True(t, isOverlapViolation(exclusion))
	require.True(t, isOverlapViolation(fmt.Errorf("insert booking: %w", exclusion)),
		"wrapped constraint errors must still be recognized")

	require.False(t, isOverlapViolation(nil))
	require.False(t, isOverlapViolation(errors.New("connection reset")))
	require.False(t, isOverlapViolation(&pgconn.PgError{Code: "23505"}),
		"unique violations belong to the slug path, not the overlap path")
}

func TestOverlapViolationMapsToConflict(t *testing.T) {
	// The insert paths wrap a 23P01 as ErrConflict so handlers answer 409,
	// same as when the FOR UPDATE pre-check catches the overlap first.
	mapped := fmt.Errorf("slot no longer available: %w", ErrConflict)
	require.ErrorIs(t, mapped, ErrConflict)
	require.False(t, IsValidation(mapped))
}
