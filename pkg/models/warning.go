package models

import (
	"time"
)

// WarningKind categorizes a non-fatal problem found while building an index
type WarningKind string

const (
	// WarningEnumeration means a directory was skipped because it could not be listed
	WarningEnumeration WarningKind = "enumeration"
	// WarningHash means a file digest could not be computed
	WarningHash WarningKind = "hash"
)

// Warning is a swallowed failure kept visible to the caller.
// Partial trees are still compared; warnings say which parts are missing.
type Warning struct {
	Kind      WarningKind
	Side      Side
	Path      string
	Err       error
	Timestamp time.Time
}

// NewWarning creates a warning stamped with the current time
func NewWarning(kind WarningKind, side Side, path string, err error) Warning {
	return Warning{
		Kind:      kind,
		Side:      side,
		Path:      path,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Message returns the error text, or an empty string
func (w Warning) Message() string {
	if w.Err == nil {
		return ""
	}
	return w.Err.Error()
}
