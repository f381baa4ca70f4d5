package document

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Flatten renders the structured fields of doc into the text-sections view.
// Skills are emitted in the grouped "Category: a, b" form.
func Flatten(doc *types.Document) types.TextSections {
	return types.TextSections{
		Basics:     flattenBasics(doc.Basics),
		Experience: flattenWork(doc.Work),
		Education:  flattenEducation(doc.Education),
		Skills:     FlattenSkills(doc.SkillGroups),
		Projects:   flattenProjects(doc.Projects),
	}
}

// TextView returns the document's text sections, deriving them from the
// structured fields when none are stored.
func TextView(doc *types.Document) types.TextSections {
	if doc.Sections != nil {
		return *doc.Sections
	}
	return Flatten(doc)
}

// FlattenSkills renders skill groups one per line.
func FlattenSkills(groups []types.SkillGroup) string {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("%s: %s", g.Name, strings.Join(g.Keywords, ", ")))
	}
	return strings.Join(lines, "\n")
}

func flattenBasics(b types.Basics) string {
	var lines []string
	header := strings.TrimSpace(strings.Join(nonEmpty(b.Name, b.Label), " - "))
	if header != "" {
		lines = append(lines, header)
	}
	if contact := strings.Join(nonEmpty(b.Email, b.Phone, b.URL), " | "); contact != "" {
		lines = append(lines, contact)
	}
	if b.Summary != "" {
		lines = append(lines, b.Summary)
	}
	return strings.Join(lines, "\n")
}

func flattenWork(work []types.WorkEntry) string {
	entries := make([]string, 0, len(work))
	for _, w := range work {
		var lines []string
		title := strings.Join(nonEmpty(w.Position, w.Name), " at ")
		if dates := strings.Join(nonEmpty(w.StartDate, w.EndDate), " - "); dates != "" {
			title = fmt.Sprintf("%s (%s)", title, dates)
		}
		lines = append(lines, title)
		if w.Summary != "" {
			lines = append(lines, w.Summary)
		}
		for _, h := range w.Highlights {
			lines = append(lines, "- "+h)
		}
		entries = append(entries, strings.Join(lines, "\n"))
	}
	return strings.Join(entries, "\n\n")
}

func flattenEducation(edu []types.EducationEntry) string {
	lines := make([]string, 0, len(edu))
	for _, e := range edu {
		degree := strings.Join(nonEmpty(e.StudyType, e.Area), " in ")
		line := strings.Join(nonEmpty(degree, e.Institution), ", ")
		if dates := strings.Join(nonEmpty(e.StartDate, e.EndDate), " - "); dates != "" {
			line = fmt.Sprintf("%s (%s)", line, dates)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func flattenProjects(projects []types.Project) string {
	entries := make([]string, 0, len(projects))
	for _, p := range projects {
		lines := []string{strings.Join(nonEmpty(p.Name, p.Description), ": ")}
		for _, h := range p.Highlights {
			lines = append(lines, "- "+h)
		}
		entries = append(entries, strings.Join(lines, "\n"))
	}
	return strings.Join(entries, "\n\n")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
