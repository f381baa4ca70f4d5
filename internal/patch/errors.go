// Package patch turns approved edit proposals into structural or textual
// mutations of a resume document.
package patch

import (
	"errors"
	"fmt"
)

// Failure reasons recorded on proposals that could not be applied.
var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNoWorkEntries   = errors.New("no work entries")
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnsupportedType = errors.New("unsupported proposal type")
)

// OpError represents a structural edit operation that could not be applied.
type OpError struct {
	Index   int
	Op      string
	Path    string
	Message string
	Cause   error
}

func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("edit op %d (%s %s): %s: %v", e.Index, e.Op, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("edit op %d (%s %s): %s", e.Index, e.Op, e.Path, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

// ApplyError represents a document that became invalid after its edits were applied.
type ApplyError struct {
	Message string
	Cause   error
}

func (e *ApplyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("patch apply error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("patch apply error: %s", e.Message)
}

func (e *ApplyError) Unwrap() error {
	return e.Cause
}
