package rendering

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const resumeTemplate = "resume.html.tmpl"

// Output is a rendered resume.
type Output struct {
	Theme string
	HTML  string
	PDF   []byte
}

// Renderer renders a document in a theme.
type Renderer interface {
	Render(ctx context.Context, doc *types.Document, theme string) (*Output, error)
}

// PDFPrinter converts an HTML page to PDF.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// DocumentRenderer renders HTML with the embedded templates and, when a
// Printer is set, a PDF of the same page.
type DocumentRenderer struct {
	Printer PDFPrinter
}

var (
	parsed    *template.Template
	parseErr  error
	parseOnce sync.Once
)

func resumeTmpl() (*template.Template, error) {
	parseOnce.Do(func() {
		parsed, parseErr = template.New(resumeTemplate).Funcs(template.FuncMap{
			"join":  strings.Join,
			"dates": dateRange,
		}).ParseFS(templateFS, "templates/"+resumeTemplate)
	})
	return parsed, parseErr
}

// Render produces the HTML (and PDF, when configured) for doc.
func (r *DocumentRenderer) Render(ctx context.Context, doc *types.Document, theme string) (*Output, error) {
	html, err := RenderHTML(doc, theme)
	if err != nil {
		return nil, err
	}
	out := &Output{Theme: normalizeTheme(theme), HTML: html}
	if r.Printer == nil {
		return out, nil
	}

	pdf, err := r.Printer.PrintPDF(ctx, html)
	if err != nil {
		return out, &PrintError{Cause: err}
	}
	out.PDF = pdf
	return out, nil
}

// RenderHTML renders doc as a standalone HTML page.
func RenderHTML(doc *types.Document, theme string) (string, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	css, ok := themeCSS(theme)
	if !ok {
		return "", &TemplateError{Theme: theme, Op: "lookup", Cause: fmt.Errorf("unknown theme (available: %s)", strings.Join(Themes(), ", "))}
	}
	tmpl, err := resumeTmpl()
	if err != nil {
		return "", &TemplateError{Theme: theme, Op: "parse", Cause: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildView(doc, css)); err != nil {
		return "", &TemplateError{Theme: theme, Op: "execute", Cause: err}
	}
	return buf.String(), nil
}

type view struct {
	*types.Document
	CSS          template.CSS
	Structured   bool
	Contact      []string
	Extras       map[string]string
	TextSections []textSection
}

type textSection struct {
	Name  string
	Title string
	Lines []string
}

func buildView(doc *types.Document, css string) view {
	v := view{
		Document:   doc,
		CSS:        template.CSS(css), //nolint:gosec // theme CSS is compiled in
		Structured: doc.HasStructure(),
		Extras:     map[string]string{},
	}

	if !v.Structured {
		sections := document.TextView(doc)
		for _, name := range types.SectionNames {
			text, _ := sections.Get(name)
			if lines := nonBlankLines(text); len(lines) > 0 {
				v.TextSections = append(v.TextSections, textSection{Name: name, Title: sectionTitle(name), Lines: lines})
			}
		}
		return v
	}

	b := doc.Basics
	for _, c := range []string{b.Email, b.Phone, b.URL, location(b.Location)} {
		if c != "" {
			v.Contact = append(v.Contact, c)
		}
	}
	v.Extras = Additions(doc)
	return v
}

// Additions returns, per section, the text that textual edits appended to a
// structured document's flattened view.
func Additions(doc *types.Document) map[string]string {
	out := map[string]string{}
	if doc.Sections == nil || !doc.HasStructure() {
		return out
	}
	base := document.Flatten(doc)
	for _, name := range types.SectionNames {
		edited, _ := doc.Sections.Get(name)
		original, _ := base.Get(name)
		if edited == original {
			continue
		}
		extra := edited
		if strings.HasPrefix(edited, strings.TrimRight(original, " \t\n")) {
			extra = strings.TrimPrefix(edited, strings.TrimRight(original, " \t\n"))
		}
		extra = strings.TrimLeft(strings.TrimSpace(extra), ". ")
		if extra != "" {
			out[name] = extra
		}
	}
	return out
}

func dateRange(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " – Present"
	case start == "":
		return end
	}
	return start + " – " + end
}

func location(l *types.Location) string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.CountryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func sectionTitle(name string) string {
	if name == types.SectionBasics {
		return "Summary"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func normalizeTheme(theme string) string {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		return DefaultTheme
	}
	return theme
}
