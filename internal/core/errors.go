// Package core defines the fundamental types and errors for Mnemo.
package core

import (
	"errors"
	"fmt"
)

// Core errors that can occur across the system
var (
	// ErrNotFound is returned when an operation references an id or key
	// that is not present in the materialized view.
	ErrNotFound = errors.New("entry not found")
)

// ValidationError reports a malformed or incomplete entry. It names the
// offending field so a caller can fix its input; it is never retried
// automatically.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s entry: field %q %s", e.Kind, e.Field, e.Reason)
}

// ParseError wraps a log or legacy line that could not be decoded.
// Read paths record these as skip counts rather than failing, so one
// bad line never makes the whole memory unreadable.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse entry: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
