package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateLogin is returned when an insert collides with an existing login identifier.
var ErrDuplicateLogin = errors.New("login identifier already issued")

// ErrStaleAdmission is returned when an inquiry's status changed after it was read for an edit.
var ErrStaleAdmission = errors.New("admission inquiry changed concurrently")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
