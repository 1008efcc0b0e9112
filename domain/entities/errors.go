package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the text is empty after trimming
	ErrEmptyInput = errors.New("empty input")
	// ErrSourceUnavailable marks a non-fatal miss from the dictionary source
	ErrSourceUnavailable = errors.New("audio source unavailable")
	// ErrSynthesisFailure is returned when no strategy produced audio
	ErrSynthesisFailure = errors.New("synthesis failure")
	// ErrStorageFailure is returned when a retrievable URL could not be produced
	ErrStorageFailure = errors.New("storage failure")
	// ErrNotConfigured marks a collaborator running without credentials
	ErrNotConfigured = errors.New("not configured")
	// ErrBlobNotFound is returned by a blob store when the object is absent
	ErrBlobNotFound = errors.New("blob not found")
)

// ResolutionError carries the taxonomy kind, the step that failed and the underlying cause
type ResolutionError struct {
	Kind error
	Op   string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorCode maps an error to the short code used in API responses
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrSynthesisFailure):
		return "synthesis_failure"
	default:
		return "internal_error"
	}
}

// ErrorMessage is the client-facing description for err; causes stay in the logs
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Text is empty"
	case errors.Is(err, ErrStorageFailure):
		return "Audio could not be stored"
	case errors.Is(err, ErrSynthesisFailure):
		return "Audio could not be generated"
	default:
		return "Internal server error"
	}
}
