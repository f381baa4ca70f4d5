// Package server provides the HTTP API for the resume optimizer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRunNotFound indicates the run is neither in memory nor in the database
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrNoDatabase is returned by endpoints that need the audit database when
// none is configured.
var ErrNoDatabase = errors.New("run history requires a database")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		notFound   *ErrRunNotFound
		runInvalid *workflow.ValidationError
		runFailed  *workflow.WorkflowError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &runInvalid), errors.Is(err, db.ErrInvalidRunID):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &runFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
