package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// TextExtractor turns a binary document (PDF) into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Parser turns an input source into a Document.
// JSON sources become structured documents; text and PDF sources become
// text-only documents that are patched through the textual fallback.
type Parser struct {
	Extractor TextExtractor
}

// Parse loads the document described by src.
func (p *Parser) Parse(ctx context.Context, src types.InputSource) (*types.Document, error) {
	switch {
	case src.Inline != "":
		return parseBytes(src.String(), []byte(src.Inline))
	case src.Path != "":
		return p.parseFile(ctx, src.Path)
	case src.URL != "":
		return nil, &ParseError{Source: src.URL, Message: "documents cannot be loaded from URLs"}
	}
	return nil, &ParseError{Source: src.String(), Message: "no document source given"}
}

func (p *Parser) parseFile(ctx context.Context, path string) (*types.Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if p.Extractor == nil {
			return nil, &ParseError{Source: path, Message: "no PDF extractor configured"}
		}
		text, err := p.Extractor.Extract(ctx, path)
		if err != nil {
			return nil, &ParseError{Source: path, Message: "text extraction failed", Cause: err}
		}
		return ParseText(path, text)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Message: "failed to read file", Cause: err}
	}
	return parseBytes(path, data)
}

func parseBytes(source string, data []byte) (*types.Document, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(source, trimmed)
	}
	return ParseText(source, string(data))
}

// ParseJSON decodes a JSON resume, validating it against the document schema
// and the keyword uniqueness invariants.
func ParseJSON(source string, data []byte) (*types.Document, error) {
	if err := schemas.ValidateDocument(data); err != nil {
		return nil, &ParseError{Source: source, Message: "document does not match schema", Cause: err}
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Source: source, Message: "failed to decode JSON", Cause: err}
	}
	Normalize(&doc)

	if err := CheckInvariants(&doc); err != nil {
		return nil, &ParseError{Source: source, Message: "skill groups violate uniqueness", Cause: err}
	}
	return &doc, nil
}

// ParseText splits plain resume text into sections by recognizing headings.
// Text before the first heading belongs to basics.
func ParseText(source, text string) (*types.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Source: source, Message: "document is empty"}
	}

	buckets := make(map[string][]string)
	current := types.SectionBasics
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if section, ok := headingSection(line); ok {
			current = section
			continue
		}
		buckets[current] = append(buckets[current], strings.TrimRight(line, " \t"))
	}

	sections := &types.TextSections{}
	for _, name := range types.SectionNames {
		sections.Set(name, strings.TrimSpace(strings.Join(buckets[name], "\n")))
	}

	doc := &types.Document{Sections: sections}
	Normalize(doc)
	return doc, nil
}

var headingAliases = map[string]string{
	"summary":                 types.SectionBasics,
	"profile":                 types.SectionBasics,
	"about":                   types.SectionBasics,
	"about me":                types.SectionBasics,
	"experience":              types.SectionExperience,
	"work experience":         types.SectionExperience,
	"professional experience": types.SectionExperience,
	"employment":              types.SectionExperience,
	"employment history":      types.SectionExperience,
	"education":               types.SectionEducation,
	"skills":                  types.SectionSkills,
	"technical skills":        types.SectionSkills,
	"core competencies":       types.SectionSkills,
	"projects":                types.SectionProjects,
	"personal projects":       types.SectionProjects,
}

// headingSection maps a heading line like "WORK EXPERIENCE:" to its section.
func headingSection(line string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, line)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" || len(cleaned) > 30 {
		return "", false
	}
	section, ok := headingAliases[cleaned]
	return section, ok
}

// MarshalIndent encodes doc the way exports and CLI output present it.
func MarshalIndent(doc *types.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}
