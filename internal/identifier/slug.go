// Package identifier derives and allocates the URL-safe identifiers used by
// the platform: store slugs/subdomains and human-facing order references.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ReservedSubdomains are platform names a tenant may never claim. Both the
// validation and the availability check consult this single list.
var ReservedSubdomains = []string{
	"www", "app", "api", "admin", "dashboard",
	"store", "stores", "login", "register", "help", "support",
}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	disallowed     = regexp.MustCompile(`[^a-z0-9-]`)
	subdomainShape = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// DeriveSlug normalizes a human-supplied name into a slug candidate:
// lowercase, whitespace runs collapsed to a single hyphen, every other
// character outside [a-z0-9-] dropped. The result is not yet unique, and an
// all-symbol input degenerates to "".
func DeriveSlug(name string) string {
	s := strings.ToLower(name)
	s = whitespaceRuns.ReplaceAllString(s, "-")
	return disallowed.ReplaceAllString(s, "")
}

// IsReserved reports whether the value is a reserved platform name.
// Comparison is case-insensitive.
func IsReserved(value string) bool {
	lower := strings.ToLower(value)
	for _, r := range ReservedSubdomains {
		if lower == r {
			return true
		}
	}
	return false
}

// ErrAllocationExhausted is returned when the uniqueness probe loop exceeds
// its attempt budget. It indicates a persistence problem or pathological
// input rather than ordinary contention.
var ErrAllocationExhausted = errors.New("identifier allocation attempts exhausted")

// ExistsFunc reports whether a candidate identifier is already taken. It is
// expected to query the persistent store with an exact match.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

const DefaultMaxAttempts = 10000

// Allocator finds a free identifier by probing candidate, candidate-1,
// candidate-2, ... against an existence check.
//
// This is check-then-act: two concurrent callers can both observe a candidate
// as free. The allocator only minimizes collisions; the unique index on the
// target column is the real guarantee, and an insert that still fails with a
// duplicate key must be handled by re-running allocation.
type Allocator struct {
	// MaxAttempts bounds the number of existence probes per allocation.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int
}

func (a Allocator) AllocateSlug(ctx context.Context, candidate string, exists ExistsFunc) (string, error) {
	max := a.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}

	attempt := candidate
	for i := 1; i <= max; i++ {
		taken, err := exists(ctx, attempt)
		if err != nil {
			return "", fmt.Errorf("check identifier %q: %w", attempt, err)
		}
		if !taken {
			return attempt, nil
		}
		attempt = fmt.Sprintf("%s-%d", candidate, i)
	}

	return "", ErrAllocationExhausted
}

// ValidationError reports the first constraint a candidate identifier
// violated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidateSubdomain checks an explicitly chosen subdomain. Constraints are
// checked in order and the first failure wins: non-empty, length 3-30, shape
// (lowercase alphanumerics and inner hyphens only), not reserved.
func ValidateSubdomain(value string) error {
	switch {
	case value == "":
		return &ValidationError{Field: "subdomain", Reason: "subdomain is required"}
	case len(value) < 3:
		return &ValidationError{Field: "subdomain", Reason: "must be at least 3 characters"}
	case len(value) > 30:
		return &ValidationError{Field: "subdomain", Reason: "must be at most 30 characters"}
	case !subdomainShape.MatchString(value):
		return &ValidationError{Field: "subdomain", Reason: "may only contain lowercase letters, digits and hyphens, and must not start or end with a hyphen"}
	case IsReserved(value):
		return &ValidationError{Field: "subdomain", Reason: "this subdomain is reserved"}
	}
	return nil
}
