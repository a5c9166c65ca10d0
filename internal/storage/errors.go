package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports a malformed or missing required field. It is
// a caller-side error and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a reference to a record that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IntegrityError reports a write that would violate the referential or
// cascade invariants, such as a mention insert racing the deletion of
// its parent response.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: integrity violation: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// StorageError reports an underlying durability failure: connection
// loss, transaction failure, malformed results. Producers may retry
// these with backoff; the store itself never does.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsIntegrity reports whether err is an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// Postgres SQLSTATE codes the store maps onto the error taxonomy.
const (
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// wrapPgError classifies a pgx error into the taxonomy. Constraint
// violations carry the constraint name in the reason so callers can log
// something actionable.
func wrapPgError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return &IntegrityError{Op: op, Err: err}
		case pgNotNullViolation, pgCheckViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Reason: pgErr.Message}
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return &IntegrityError{Op: op, Err: err}
		}
	}

	return &StorageError{Op: op, Err: err}
}
