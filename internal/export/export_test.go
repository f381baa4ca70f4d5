package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/types"
)

type failingPrinter struct{}

func (failingPrinter) PrintPDF(context.Context, string) ([]byte, error) {
	return nil, errors.New("chrome not installed")
}

type stubPrinter struct{}

func (stubPrinter) PrintPDF(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

func newTestExporter(pdf rendering.PDFPrinter) *Exporter {
	logger, _ := test.NewNullLogger()
	e := &Exporter{
		Logger: logger,
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	if pdf != nil {
		e.PDF = &rendering.DocumentRenderer{Printer: pdf}
	}
	return e
}

func doc() *types.Document {
	return &types.Document{
		Basics:      types.Basics{Name: "Ada"},
		SkillGroups: []types.SkillGroup{{Name: "Core", Keywords: []string{"Go"}}},
	}
}

func TestExport_InMemoryByDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	art, err := newTestExporter(nil).Export(context.Background(), Request{Document: doc(), Report: "# Report", OutputPath: dir})
	require.NoError(t, err)

	assert.Contains(t, string(art.JSON), `"name": "Core"`)
	assert.Contains(t, art.HTML, "<h1>Ada</h1>")
	assert.Equal(t, "2026-03-01T12:00:00Z", art.RenderedAt)
	assert.Empty(t, art.Paths)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "no disk writes without AllowDisk")
}

func TestExport_WritesWhenAllowed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	art, err := newTestExporter(stubPrinter{}).Export(context.Background(), Request{
		Document: doc(), Report: "# Report", AllowDisk: true, OutputPath: dir, RenderPDF: true,
	})
	require.NoError(t, err)

	for _, name := range []string{FileJSON, FileHTML, FilePDF, FileReport} {
		require.Contains(t, art.Paths, name)
		data, err := os.ReadFile(art.Paths[name])
		require.NoError(t, err)
		assert.NotEmpty(t, data, name)
	}
}

func TestExport_PDFFailureIsWarning(t *testing.T) {
	art, err := newTestExporter(failingPrinter{}).Export(context.Background(), Request{Document: doc(), RenderPDF: true})
	require.NoError(t, err)

	assert.NotEmpty(t, art.HTML)
	assert.Nil(t, art.PDF)
	require.Len(t, art.Warnings, 1)
	assert.Contains(t, art.Warnings[0], "chrome not installed")
}

func TestExport_Errors(t *testing.T) {
	e := newTestExporter(nil)

	_, err := e.Export(context.Background(), Request{})
	var exportErr *Error
	assert.ErrorAs(t, err, &exportErr)

	_, err = e.Export(context.Background(), Request{Document: doc(), AllowDisk: true})
	assert.ErrorAs(t, err, &exportErr)

	_, err = e.Export(context.Background(), Request{Document: doc(), Theme: "neon"})
	var tmplErr *rendering.TemplateError
	assert.ErrorAs(t, err, &tmplErr)
}

func TestExport_UnwritableDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := newTestExporter(nil).Export(context.Background(), Request{Document: doc(), AllowDisk: true, OutputPath: filepath.Join(file, "out")})
	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "output", exportErr.Artifact)
}
