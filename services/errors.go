package services

import (
	"errors"
	"fmt"

	"menu-admin/validation"
)

var (
	// ErrNotFound means no menu item matches the id (stale id or deleted row).
	ErrNotFound = errors.New("menu item not found")
	// ErrConstraint means the referenced category does not exist.
	ErrConstraint = errors.New("category does not exist")
)

// ValidationError carries every field that failed the server rules.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string { return e.Fields.Error() }

// TransientStoreError wraps connection, timeout and other unexpected store
// failures. Callers may offer a manual retry.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransientStoreError) Unwrap() error { return e.Err }

func transient(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraint) {
		return err
	}
	var te *TransientStoreError
	if errors.As(err, &te) {
		return err
	}
	return &TransientStoreError{Op: op, Err: err}
}
