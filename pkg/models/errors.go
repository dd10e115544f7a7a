package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the engine packages. Callers match these with errors.Is.
var (
	// ErrEnumerationFailure marks a directory that could not be listed
	ErrEnumerationFailure = errors.New("enumeration failure")
	// ErrHashFailure marks a file that could not be read for digesting
	ErrHashFailure = errors.New("hash failure")
	// ErrCopyFailure marks a file that could not be copied
	ErrCopyFailure = errors.New("copy failure")
	// ErrDeleteFailure marks a file that could not be deleted
	ErrDeleteFailure = errors.New("delete failure")
	// ErrInvalidRoot marks a source or destination root that is unusable
	ErrInvalidRoot = errors.New("invalid root")
)

// RootError reports an unusable tree root. It is returned before any
// enumeration starts.
type RootError struct {
	Side Side
	Path string
	Err  error
}

func (e *RootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s root %q: %v", e.Side, e.Path, e.Err)
	}
	return fmt.Sprintf("%s root %q is not a directory", e.Side, e.Path)
}

// Unwrap lets errors.Is match both ErrInvalidRoot and the underlying cause
func (e *RootError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidRoot, e.Err}
	}
	return []error{ErrInvalidRoot}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
