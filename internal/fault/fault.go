// Package fault carries the string-keyed error taxonomy shared by the
// search actions. Tags surface in error messages and in persisted fail
// reasons so failures can be classified after the fact.
package fault

import (
	"errors"
	"fmt"
)

// Known tags.
const (
	Hallucination = "HALLUCINATION"
	Timeout       = "TIMEOUT"
	InvalidRange  = "INVALID_RANGE"
)

// Error is an error classified under one of the known tags. Its message
// always starts with the tag.
type Error struct {
	Tag string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Tag
	}
	return e.Tag + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under the given tag.
func New(tag string, err error) *Error {
	return &Error{Tag: tag, Err: err}
}

// Newf builds a tagged error from a format string.
func Newf(tag, format string, args ...any) *Error {
	return &Error{Tag: tag, Err: fmt.Errorf(format, args...)}
}

// TagOf returns the tag of err if it is (or wraps) a tagged error, or ""
// otherwise.
func TagOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Tag
	}
	return ""
}
