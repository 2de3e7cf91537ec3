package database

import (
	"github.com/lib/pq"

	"github.com/medflow/hospital-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error or has no domain meaning.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return errors.Conflict("a record with these values already exists")
	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.InvalidInput(col, "must not be empty")
	case "23514": // check_violation
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)
	default:
		return nil
	}
}
