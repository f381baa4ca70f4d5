// Package rendering turns resume documents into HTML and PDF.
package rendering

import (
	"errors"
	"fmt"
)

// ErrNilDocument is returned when there is nothing to render.
var ErrNilDocument = errors.New("rendering: document is nil")

// TemplateError reports a theme that could not be looked up, parsed or executed.
type TemplateError struct {
	Theme string
	Op    string
	Cause error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("theme %q: %s: %v", e.Theme, e.Op, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// PrintError wraps a PDF printer failure. The HTML rendered before it is
// still usable.
type PrintError struct {
	Cause error
}

func (e *PrintError) Error() string {
	return "pdf printing failed: " + e.Cause.Error()
}

func (e *PrintError) Unwrap() error { return e.Cause }
