package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wishfund/internal/domain"
)

// mapError converts pgx/pgconn errors to domain errors. notFound is the named
// error reported for a missing row or an id that is not a valid uuid.
// Context cancellation passes through unchanged.
func mapError(err error, notFound error, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%s: %w", id, notFound)
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", id, notFound)
		case "23514": // check_violation
			return fmt.Errorf("%s: %s: %w", id, pgErr.ConstraintName, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s: %w", id, err)
}

// donorFKConstraint is the default name Postgres gives donations.donor_id's
// foreign key.
const donorFKConstraint = "donations_donor_id_fkey"

// isFKViolation reports a foreign_key_violation on the named constraint.
func isFKViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == constraint
}

// errNoRows reports an update or delete that matched nothing.
var errNoRows = pgx.ErrNoRows
