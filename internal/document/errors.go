// Package document loads, copies and flattens resume documents.
package document

import "fmt"

// ParseError represents a failure to turn a source into a Document.
type ParseError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document parse error: %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("document parse error: %s: %s", e.Source, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// InvariantError reports a keyword that breaks skill-group uniqueness.
type InvariantError struct {
	Keyword string
	Groups  []string
}

func (e *InvariantError) Error() string {
	if len(e.Groups) == 1 {
		return fmt.Sprintf("keyword %q is duplicated within group %q", e.Keyword, e.Groups[0])
	}
	return fmt.Sprintf("keyword %q appears in multiple groups: %v", e.Keyword, e.Groups)
}
