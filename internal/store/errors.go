package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. registering an existing username.
var ErrDuplicate = errors.New("duplicate record")

// ErrForeignKey is returned when a referenced record does not exist,
// e.g. sending a message to an unknown username.
var ErrForeignKey = errors.New("referenced record does not exist")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// constraintError maps Postgres constraint violations to typed sentinel
// errors, leaving other errors untouched.
func constraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrForeignKey
	}
	return err
}
