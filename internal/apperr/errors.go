// Package apperr defines the error taxonomy shared across the engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a lookup by an unknown node, frame, or vault id.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a duplicate registration or an entry that already exists.
	ErrConflict = errors.New("conflict")
)

// BackendError wraps a failed external storage call. It propagates to the
// caller unmodified, with no automatic retry; the in-memory tree must be
// left untouched by the failed operation.
type BackendError struct {
	Op   string // e.g. "create", "delete", "scan"
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backend wraps err as a BackendError for op on path.
func Backend(op, path string, err error) error {
	return &BackendError{Op: op, Path: path, Err: err}
}

// IsBackend reports whether err is (or wraps) a BackendError.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// ParseError marks a malformed persisted payload. Callers absorb it by
// substituting a safe default representation rather than surfacing it.
type ParseError struct {
	Source string // what was being parsed, e.g. "tree blob", "canvas document"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse wraps err as a ParseError for the named source.
func Parse(source string, err error) error {
	return &ParseError{Source: source, Err: err}
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
