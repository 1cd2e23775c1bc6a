package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the store connection is missing or
	// misconfigured.
	ErrNotConfigured = errors.New("data source not configured")

	// ErrConnection indicates a transient external failure. Callers
	// treat it as non-fatal per tool.
	ErrConnection = errors.New("data source connection failed")

	// ErrQuery indicates a structural problem in a specific query.
	ErrQuery = errors.New("query failed")
)

// queryError wraps a low-level driver error as an ErrQuery with the
// operation name for logs.
func queryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrQuery, op, err)
}
