package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredentials is returned when no API key is available.
var ErrMissingCredentials = errors.New("llm: API key is required")

// TimeoutError reports a call that exceeded its time cap.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm %s timed out after %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// CallError reports a provider failure that was not a timeout.
type CallError struct {
	Operation string
	Cause     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm %s failed: %v", e.Operation, e.Cause)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// InvalidResponseError reports output that could not be parsed or validated.
type InvalidResponseError struct {
	Operation string
	Response  string
	Message   string
	Cause     error
}

func (e *InvalidResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm %s returned an invalid response: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm %s returned an invalid response: %s", e.Operation, e.Message)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Cause
}
