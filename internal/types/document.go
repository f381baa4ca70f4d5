// Package types provides type definitions for structured data used throughout the resume-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// Document is a JSON-Resume-shaped resume tree.
// Structured fields and the flattened Sections view may coexist: documents parsed
// from plain text or PDF only carry Sections.
type Document struct {
	Basics      Basics           `json:"basics"`
	Work        []WorkEntry      `json:"work"`
	Education   []EducationEntry `json:"education"`
	SkillGroups []SkillGroup     `json:"skills"`
	Projects    []Project        `json:"projects"`
	Sections    *TextSections    `json:"sections,omitempty"`
}

// Basics holds contact details and the free-text summary.
type Basics struct {
	Name     string    `json:"name,omitempty"`
	Label    string    `json:"label,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	URL      string    `json:"url,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Location is the candidate's city/region
type Location struct {
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// WorkEntry is a single position. Entries are ordered as they appear in the source;
// the last entry is the one structural highlight edits target.
type WorkEntry struct {
	Name       string   `json:"name,omitempty"`
	Position   string   `json:"position,omitempty"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// EducationEntry is a single degree or program
type EducationEntry struct {
	Institution string `json:"institution,omitempty"`
	Area        string `json:"area,omitempty"`
	StudyType   string `json:"studyType,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// SkillGroup is a named category of skill keywords.
type SkillGroup struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Project is a side or portfolio project
type Project struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Section names of the flattened text view.
const (
	SectionBasics     = "basics"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionProjects   = "projects"
)

// SectionNames lists the text sections in display order.
var SectionNames = []string{SectionBasics, SectionExperience, SectionEducation, SectionSkills, SectionProjects}

// TextSections is the flattened text view of a document used by textual edits.
type TextSections struct {
	Basics     string `json:"basics"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Skills     string `json:"skills"`
	Projects   string `json:"projects"`
}

// Get returns the text of a named section and whether the name is known.
func (s *TextSections) Get(name string) (string, bool) {
	switch strings.ToLower(name) {
	case SectionBasics:
		return s.Basics, true
	case SectionExperience:
		return s.Experience, true
	case SectionEducation:
		return s.Education, true
	case SectionSkills:
		return s.Skills, true
	case SectionProjects:
		return s.Projects, true
	}
	return "", false
}

// Set replaces the text of a named section. It reports false for unknown names.
func (s *TextSections) Set(name, text string) bool {
	switch strings.ToLower(name) {
	case SectionBasics:
		s.Basics = text
	case SectionExperience:
		s.Experience = text
	case SectionEducation:
		s.Education = text
	case SectionSkills:
		s.Skills = text
	case SectionProjects:
		s.Projects = text
	default:
		return false
	}
	return true
}

// HasStructure reports whether the document carries any structured content.
func (d *Document) HasStructure() bool {
	if d == nil {
		return false
	}
	b := d.Basics
	if b.Name != "" || b.Label != "" || b.Email != "" || b.Summary != "" {
		return true
	}
	return len(d.Work) > 0 || len(d.Education) > 0 || len(d.SkillGroups) > 0 || len(d.Projects) > 0
}

// AllKeywords returns every skill keyword in group order.
func (d *Document) AllKeywords() []string {
	var out []string
	for _, g := range d.SkillGroups {
		out = append(out, g.Keywords...)
	}
	return out
}

// HasKeyword reports whether any skill group contains keyword (case-insensitive).
func (d *Document) HasKeyword(keyword string) bool {
	for _, g := range d.SkillGroups {
		if g.Contains(keyword) {
			return true
		}
	}
	return false
}

// Contains reports whether the group holds keyword (case-insensitive).
func (g SkillGroup) Contains(keyword string) bool {
	k := strings.TrimSpace(keyword)
	for _, existing := range g.Keywords {
		if strings.EqualFold(strings.TrimSpace(existing), k) {
			return true
		}
	}
	return false
}

// ExportArtifacts describes what the export stage produced.
// Paths are only populated when the run was allowed to write to disk.
type ExportArtifacts struct {
	JSON       []byte            `json:"-"`
	HTML       string            `json:"-"`
	PDF        []byte            `json:"-"`
	Report     string            `json:"report,omitempty"`
	Paths      map[string]string `json:"paths,omitempty"`
	RenderedAt string            `json:"rendered_at,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// InputSource identifies where a document or job description comes from.
// Exactly one of Path, URL or Inline should be set.
type InputSource struct {
	Path   string `json:"path,omitempty"`
	URL    string `json:"url,omitempty" validate:"omitempty,url"`
	Inline string `json:"inline,omitempty"`
}

// IsZero reports whether no location was given.
func (s InputSource) IsZero() bool {
	return s.Path == "" && s.URL == "" && s.Inline == ""
}

// String describes the source for logs and errors.
func (s InputSource) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.URL != "":
		return s.URL
	case s.Inline != "":
		return "(inline)"
	}
	return "(none)"
}
