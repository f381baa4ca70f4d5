package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces", "Go    and\tRust", "Go and Rust"},
		{"trims lines", "  Skills  \n  Go ", "Skills\nGo"},
		{"caps blank lines", "A\n\n\n\n\nB", "A\n\nB"},
		{"windows newlines", "A\r\nB", "A\nB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWhitespace(tt.in))
		})
	}
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	_, err := PDFExtractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)

	var extErr *ExtractionError
	assert.True(t, errors.As(err, &extErr))
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestPDFExtractor_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0644))

	_, err := PDFExtractor{}.Extract(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract PDF text")
}
