package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateActiveCart  = errors.New("an active cart already exists for this owner")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrCartNotActive        = errors.New("cart is no longer active")
	ErrDuplicateOrderNumber = errors.New("order number already in use")
	ErrStatusChanged        = errors.New("order is no longer in the expected status")
)

const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports a Postgres unique violation, optionally limited
// to the named constraints.
func isUniqueViolation(err error, constraints ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}

	if len(constraints) == 0 {
		return true
	}

	for _, c := range constraints {
		if pqErr.Constraint == c {
			return true
		}
	}

	return false
}

// rollback ends a transaction, treating "already committed" as success.
func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}
