// Package storage holds small helpers shared by the Postgres repositories.
package storage

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
// Repositories treat these as retryable: the identifier allocator re-runs
// rather than failing the request.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
