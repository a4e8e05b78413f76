package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsValidID reports whether id can be used as a uuid primary key.
// Lookups by a malformed id are treated as misses by the repositories.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
