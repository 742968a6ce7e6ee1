// Package xyerr provides the small error taxonomy the rest of xylu builds
// on: a plain wrapped error for recoverable conditions (key not found) and
// a marked "fatal" error for conditions spec.md calls unrecoverable
// (allocation failure, capacity overflow). It mirrors restic's
// internal/errors package (New/Fatal/Fatalf/IsFatal over
// github.com/pkg/errors) almost exactly.
package xyerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// New creates a new error, annotated with a stack trace by pkg/errors.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new error from a format string, annotated with a stack
// trace.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Wrap annotates err with a message and a stack trace, the way restic
// wraps backend errors before returning them to a caller.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal creates an error that IsFatal will report true for: allocation
// failure and capacity overflow, per spec.md §7, are always fatal and
// expected to propagate out of the core unchanged.
func Fatal(message string) error {
	return &fatalError{err: errors.New(message)}
}

// Fatalf is like Fatal but accepts a format string.
func Fatalf(format string, args ...interface{}) error {
	return &fatalError{err: errors.New(fmt.Sprintf(format, args...))}
}

// IsFatal reports whether err (or anything it wraps) was created by Fatal
// or Fatalf.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
