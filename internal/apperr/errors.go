package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDesync matches every DesyncError: the caller's view of the tree
	// no longer agrees with the store.
	ErrDesync       = errors.New("state desynchronized")
	ErrKindMismatch = errors.New("leaf/internal kind mismatch")
	ErrNoEdge       = errors.New("no such parent-child edge")
	ErrInconsistent = errors.New("model violates leaf/internal invariant")
)

// DesyncError reports a request that references state the store does not
// have. Err is one of ErrNotFound, ErrKindMismatch, ErrNoEdge or
// ErrInconsistent.
type DesyncError struct {
	Op   string
	Name string
	Err  error
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%s %q: %s: %v", e.Op, e.Name, ErrDesync, e.Err)
}

func (e *DesyncError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDesync) match any DesyncError.
func (e *DesyncError) Is(target error) bool {
	return target == ErrDesync
}

// Desync builds a DesyncError.
func Desync(op, name string, err error) error {
	return &DesyncError{Op: op, Name: name, Err: err}
}
