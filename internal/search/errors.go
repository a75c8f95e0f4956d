package search

import (
	"errors"
	"fmt"
)

// Sentinel errors for the search pipeline.
var (
	// ErrAdapterTimeout indicates an adapter did not respond within its
	// configured timeout.
	ErrAdapterTimeout = errors.New("adapter timed out")

	// ErrAllAdaptersFailed indicates every requested adapter failed, so no
	// results can be returned at all.
	ErrAllAdaptersFailed = errors.New("all requested adapters failed")
)

// ValidationError describes malformed or out-of-range search input.
// It is surfaced directly to the caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AdapterError wraps a failure from a single entity adapter. Adapter
// failures are isolated per kind: the search proceeds with whatever
// adapters succeeded and marks the response partial.
type AdapterError struct {
	Kind EntityKind
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
