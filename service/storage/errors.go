package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound reports genuine absence of a record on the read path, as
// distinct from a backend failure.
var ErrNotFound = errors.New("record not found")

// BackendError wraps a failure from one storage backend. Under best-effort
// fan-out these are collected per backend rather than aborting siblings.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
