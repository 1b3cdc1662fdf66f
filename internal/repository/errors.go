package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrSeatsExhausted is returned when a conditional seat decrement matched a class with
	// no seats left.
	ErrSeatsExhausted = errors.New("no seats available")
	// ErrDuplicate is returned when a unique constraint rejected an insert.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
