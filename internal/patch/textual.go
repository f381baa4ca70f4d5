package patch

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// TextChange records a textual edit for the audit report.
type TextChange struct {
	Section string
	Added   string
	// suffix is what was appended to the section text, used to replay the
	// change onto a re-flattened view.
	suffix string
	// replaced holds the full section text when the edit rewrote it.
	replaced string
}

// groupedLine matches "Category: a, b" with an optional leading bullet.
var groupedLine = regexp.MustCompile(`^\s*(?:[•\-*]\s*)?([^:,]{1,60}):\s*(.*?)\s*$`)

// DefaultSection returns the text section a proposal type edits when the
// proposal names none.
func DefaultSection(t types.ProposalType) string {
	switch t {
	case types.ProposalAddSkill, types.ProposalAddKeyword:
		return types.SectionSkills
	case types.ProposalEnhanceExperience, types.ProposalAlignExperience, types.ProposalRoleEnhancement:
		return types.SectionExperience
	case types.ProposalAddContent:
		return types.SectionProjects
	default:
		return types.SectionBasics
	}
}

// ApplyTextual applies p to the text view. sections is only modified on success.
func ApplyTextual(sections *types.TextSections, p types.Proposal, w Weights) (TextChange, error) {
	value := strings.TrimSpace(p.Value)
	if p.Type.IsSkill() {
		return applySkillText(sections, value, w)
	}

	section := p.Section
	if section == "" {
		section = DefaultSection(p.Type)
	}
	text, ok := sections.Get(section)
	if !ok {
		return TextChange{}, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	// Emphasis targets terms that are usually already in the text, so only a
	// repeated note counts as a duplicate.
	emphasize := strings.EqualFold(strings.TrimSpace(p.Action), types.ActionEmphasize)
	added, existing := value, value
	if emphasize {
		added = fmt.Sprintf("(Emphasis: %s)", value)
		existing = added
	}
	if value != "" && strings.Contains(strings.ToLower(text), strings.ToLower(existing)) {
		return TextChange{}, ErrAlreadyExists
	}
	trimmed := strings.TrimRight(text, " \t\n")
	suffix := appendSuffix(trimmed, added, emphasize)
	sections.Set(section, trimmed+suffix)
	return TextChange{Section: section, Added: added, suffix: suffix}, nil
}

// appendSuffix joins added onto a section: sentences follow ". ", emphasis
// notes follow a single space.
func appendSuffix(trimmed, added string, emphasize bool) string {
	switch {
	case trimmed == "":
		return added
	case emphasize:
		return " " + added
	}
	if strings.HasSuffix(trimmed, ".") {
		return " " + added
	}
	return ". " + added
}

func applySkillText(sections *types.TextSections, keyword string, w Weights) (TextChange, error) {
	text := sections.Skills
	if strings.TrimSpace(text) == "" {
		sections.Skills = keyword
		return TextChange{Section: types.SectionSkills, Added: keyword, replaced: keyword}, nil
	}

	if groups, ok := ParseGroupedSkills(text); ok {
		for _, g := range groups {
			if g.Contains(keyword) {
				return TextChange{}, ErrAlreadyExists
			}
		}
		idx := w.BestGroup(keyword, groups)
		groups[idx].Keywords = append(groups[idx].Keywords, keyword)
		rendered := FormatGroupedSkills(groups)
		sections.Skills = rendered
		return TextChange{Section: types.SectionSkills, Added: fmt.Sprintf("%s: %s", groups[idx].Name, keyword), replaced: rendered}, nil
	}

	for _, item := range flatItems(text) {
		if strings.EqualFold(item, keyword) {
			return TextChange{}, ErrAlreadyExists
		}
	}
	rendered := strings.TrimRight(text, " .\t\n") + ", " + keyword
	sections.Skills = rendered
	return TextChange{Section: types.SectionSkills, Added: keyword, replaced: rendered}, nil
}

// ParseGroupedSkills reads "Category: a, b" lines. It reports false when any
// non-empty line is not in that form.
func ParseGroupedSkills(text string) ([]types.SkillGroup, bool) {
	var groups []types.SkillGroup
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := groupedLine.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		groups = append(groups, types.SkillGroup{
			Name:     strings.TrimSpace(m[1]),
			Keywords: flatItems(m[2]),
		})
	}
	return groups, len(groups) > 0
}

// FormatGroupedSkills renders groups as "• Category: a, b." lines.
func FormatGroupedSkills(groups []types.SkillGroup) string {
	caser := cases.Title(language.English)
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		name := g.Name
		if name == strings.ToLower(name) {
			name = caser.String(name)
		}
		lines = append(lines, fmt.Sprintf("• %s: %s.", name, strings.Join(g.Keywords, ", ")))
	}
	return strings.Join(lines, "\n")
}

func flatItems(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(f), "."))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// replay reapplies a recorded change onto a freshly flattened view.
func (c TextChange) replay(sections *types.TextSections) {
	if c.replaced != "" {
		sections.Set(c.Section, c.replaced)
		return
	}
	text, _ := sections.Get(c.Section)
	sections.Set(c.Section, strings.TrimRight(text, " \t\n")+c.suffix)
}

// ConsolidateText enforces the group bound on a grouped skills text. Flat
// lists are returned unchanged.
func ConsolidateText(text string, limit int) string {
	groups, ok := ParseGroupedSkills(text)
	if !ok || len(groups) <= limit {
		return text
	}
	return FormatGroupedSkills(Consolidate(groups, limit))
}
