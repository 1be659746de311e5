package bunstore

import (
	"errors"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/engramlab/engram/store"
)

// Postgres error codes for constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps driver-specific constraint failures onto the store sentinel
// errors. Anything unrecognized passes through unchanged so callers can
// inspect the underlying condition.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return goerr.Wrap(errors.Join(store.ErrConflict, err), "unique violation",
				goerr.V("constraint", pqErr.Constraint))
		case pgForeignKeyViolation:
			return goerr.Wrap(errors.Join(store.ErrInvalidReference, err), "foreign key violation",
				goerr.V("constraint", pqErr.Constraint))
		}
		return err
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return goerr.Wrap(errors.Join(store.ErrConflict, err), "unique violation")
		case sqlite3.ErrConstraintForeignKey:
			return goerr.Wrap(errors.Join(store.ErrInvalidReference, err), "foreign key violation")
		}
	}
	return err
}
