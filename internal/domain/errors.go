package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single query parameter that could not be coerced
// to its declared type or range.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects malformed filter fields. It is recovered
// locally: every offending field falls back to its default, the resulting
// state stays usable, and the error is logged rather than surfaced.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid filter parameters: " + strings.Join(parts, "; ")
}

// Add records a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns the error itself if any field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// RemoteError indicates the remote catalog service returned a non-success
// status or a payload that failed shape validation. The caller surfaces it
// as a retryable error; no partial result is ever produced alongside it.
type RemoteError struct {
	Status int // HTTP status from the remote source, 0 for transport or shape failures
	Reason string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote catalog: %s (status %d)", e.Reason, e.Status)
	}
	return "remote catalog: " + e.Reason
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a requested resource does not resolve.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
