// Package export produces the final artifacts of a run: the patched document
// JSON, rendered HTML and PDF, and the markdown audit report.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Artifact file names written under the output directory.
const (
	FileJSON   = "resume.json"
	FileHTML   = "resume.html"
	FilePDF    = "resume.pdf"
	FileReport = "audit.md"
)

// Request describes one export.
type Request struct {
	Document   *types.Document
	Report     string
	Theme      string
	RenderPDF  bool
	AllowDisk  bool
	OutputPath string
}

// Error reports a failed export step.
type Error struct {
	Artifact string
	Path     string
	Cause    error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export %s to %s: %v", e.Artifact, e.Path, e.Cause)
	}
	return fmt.Sprintf("export %s: %v", e.Artifact, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Exporter renders and, when allowed, writes artifacts.
type Exporter struct {
	// HTML renders without PDF. Defaults to a DocumentRenderer without a printer.
	HTML rendering.Renderer
	// PDF renders HTML and PDF. Used only when a request asks for PDF.
	PDF    rendering.Renderer
	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Export builds the artifacts for req. Nothing touches the filesystem unless
// req.AllowDisk is set. A failed PDF print is reported as a warning.
func (e *Exporter) Export(ctx context.Context, req Request) (*types.ExportArtifacts, error) {
	if req.Document == nil {
		return nil, &Error{Artifact: "document", Cause: fmt.Errorf("document is nil")}
	}
	if req.AllowDisk && req.OutputPath == "" {
		return nil, &Error{Artifact: "output", Cause: fmt.Errorf("output path is required when disk writes are allowed")}
	}

	data, err := document.MarshalIndent(req.Document)
	if err != nil {
		return nil, &Error{Artifact: FileJSON, Cause: err}
	}
	art := &types.ExportArtifacts{
		JSON:       data,
		Report:     req.Report,
		RenderedAt: e.now().UTC().Format(time.RFC3339),
	}

	out, err := e.render(ctx, req)
	switch {
	case err != nil && out == nil:
		return nil, &Error{Artifact: FileHTML, Cause: err}
	case err != nil:
		e.logger().WithError(err).Warn("PDF rendering failed, exporting HTML only")
		art.Warnings = append(art.Warnings, err.Error())
	}
	art.HTML = out.HTML
	art.PDF = out.PDF

	if !req.AllowDisk {
		return art, nil
	}
	if err := write(req.OutputPath, art); err != nil {
		return nil, err
	}
	e.logger().WithField("dir", req.OutputPath).Info("artifacts written")
	return art, nil
}

func (e *Exporter) render(ctx context.Context, req Request) (*rendering.Output, error) {
	if req.RenderPDF && e.PDF != nil {
		return e.PDF.Render(ctx, req.Document, req.Theme)
	}
	r := e.HTML
	if r == nil {
		r = &rendering.DocumentRenderer{}
	}
	return r.Render(ctx, req.Document, req.Theme)
}

func write(dir string, art *types.ExportArtifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Artifact: "output", Path: dir, Cause: err}
	}

	files := []struct {
		name string
		data []byte
	}{
		{FileJSON, art.JSON},
		{FileHTML, []byte(art.HTML)},
		{FilePDF, art.PDF},
		{FileReport, []byte(art.Report)},
	}

	art.Paths = make(map[string]string, len(files))
	for _, f := range files {
		if len(f.data) == 0 {
			continue
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return &Error{Artifact: f.name, Path: path, Cause: err}
		}
		art.Paths[f.name] = path
	}
	return nil
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Exporter) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}
