package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy.
var (
	// ErrExtraction marks malformed or unavailable field extraction.
	// Fatal: aborts the run.
	ErrExtraction = errors.New("field extraction failed")
	// ErrIndexUnavailable marks an unreachable vector store. Recovered
	// locally by the retriever as an empty-match fallback.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrGeneration marks a text-generation call that errored or returned
	// empty output. Fatal for the step that required it.
	ErrGeneration = errors.New("text generation failed")
	// ErrIngestionParse marks one malformed source document during batch
	// ingestion. Recovered locally: skip and count.
	ErrIngestionParse = errors.New("malformed incident report")
	// ErrExternalTimeout marks a bounded-timeout expiry on an external call.
	ErrExternalTimeout = errors.New("external call timed out")

	ErrEmptyReport  = errors.New("empty incident report")
	ErrReportTooBig = errors.New("incident report too large")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// StepError tags a workflow failure with the last state the run reached.
// Every failed run surfaces exactly one StepError, never a partial response.
type StepError struct {
	State string
	Path  Path
	Err   error
}

func (e *StepError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("workflow failed at %s (path=%s): %v", e.State, e.Path, e.Err)
	}
	return fmt.Sprintf("workflow failed at %s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// NewStepError creates a StepError.
func NewStepError(state string, path Path, err error) *StepError {
	return &StepError{State: state, Path: path, Err: err}
}
