package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/llm"
)

// ValidationError reports invalid options or sources. It is returned before
// any stage runs.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid options: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ProcessingError reports a failed stage.
type ProcessingError struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// CollaboratorKind classifies a failed external call.
type CollaboratorKind string

// Collaborator failure kinds
const (
	KindTimeout            CollaboratorKind = "timeout"
	KindFailure            CollaboratorKind = "failure"
	KindInvalidResponse    CollaboratorKind = "invalid_response"
	KindMissingCredentials CollaboratorKind = "missing_credentials"
)

// CollaboratorError wraps a failure of an external collaborator such as the
// job fetcher, the text extractor or the classifier.
type CollaboratorError struct {
	Collaborator string
	Kind         CollaboratorKind
	Cause        error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Kind, e.Cause)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// collaboratorError classifies err. parent is the run context: a deadline on
// a live run is a collaborator timeout, not a cancellation.
func collaboratorError(parent context.Context, name string, err error) *CollaboratorError {
	kind := KindFailure
	var (
		timeoutErr *llm.TimeoutError
		invalidErr *llm.InvalidResponseError
	)
	switch {
	case errors.As(err, &timeoutErr):
		kind = KindTimeout
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		kind = KindTimeout
	case errors.As(err, &invalidErr):
		kind = KindInvalidResponse
	case errors.Is(err, llm.ErrMissingCredentials):
		kind = KindMissingCredentials
	}
	return &CollaboratorError{Collaborator: name, Kind: kind, Cause: err}
}

// WorkflowError is the terminal failure of a run. Errors holds what the
// failing stage recorded on its last attempt.
type WorkflowError struct {
	RunID   string
	Stage   Stage
	Retries int
	Errors  []error
}

func (e *WorkflowError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s failed at %s", e.RunID, e.Stage)
	if e.Retries > 0 {
		fmt.Fprintf(&sb, " after %d retries", e.Retries)
	}
	for i, err := range e.Errors {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e *WorkflowError) Unwrap() []error {
	return e.Errors
}
