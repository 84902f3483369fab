package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// MapError translates sql.ErrNoRows to notFoundErr and unique violations to
// duplicateErr. Other errors, including nil, are returned unchanged.
func MapError(err, notFoundErr, duplicateErr error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFoundErr
	case sqlState(err) == codeUniqueViolation:
		return duplicateErr
	}
	return err
}

// IsForeignKeyViolation reports whether err is a foreign key violation, raised
// when deleting a row that is still referenced.
func IsForeignKeyViolation(err error) bool {
	return sqlState(err) == codeForeignKeyViolation
}

// IsRetryable reports whether a transaction failed only because it lost a race
// with a concurrent one and can be run again.
func IsRetryable(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
