// Package extract provides plain-text extraction for binary resume formats.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError represents a failure to read text out of a file.
type ExtractionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s: %s", e.Path, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// PDFExtractor reads the text layer of PDF files.
type PDFExtractor struct{}

// Extract reads path and returns its plain text.
func (PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Message: "failed to read file", Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &ExtractionError{Path: path, Message: "cancelled", Cause: err}
	}
	text, err := PDFText(data)
	if err != nil {
		return "", &ExtractionError{Path: path, Message: "failed to extract PDF text", Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Path: path, Message: "PDF has no text layer"}
	}
	return text, nil
}

// PDFText extracts text from in-memory PDF bytes.
func PDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	rs, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", err
	}
	return NormalizeWhitespace(buf.String()), nil
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// NormalizeWhitespace collapses runs of spaces and more than one blank line.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
