package document

import (
	"slices"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Clone returns a deep copy of doc. Clone(nil) is nil.
func Clone(doc *types.Document) *types.Document {
	if doc == nil {
		return nil
	}

	out := &types.Document{
		Basics:    doc.Basics,
		Education: slices.Clone(doc.Education),
	}
	if doc.Basics.Location != nil {
		loc := *doc.Basics.Location
		out.Basics.Location = &loc
	}
	if doc.Work != nil {
		out.Work = make([]types.WorkEntry, len(doc.Work))
		for i, w := range doc.Work {
			w.Highlights = slices.Clone(w.Highlights)
			out.Work[i] = w
		}
	}
	if doc.SkillGroups != nil {
		out.SkillGroups = CloneGroups(doc.SkillGroups)
	}
	if doc.Projects != nil {
		out.Projects = make([]types.Project, len(doc.Projects))
		for i, p := range doc.Projects {
			p.Highlights = slices.Clone(p.Highlights)
			p.Keywords = slices.Clone(p.Keywords)
			out.Projects[i] = p
		}
	}
	if doc.Sections != nil {
		sections := *doc.Sections
		out.Sections = &sections
	}
	return out
}

// CloneGroups deep-copies a skill group list.
func CloneGroups(groups []types.SkillGroup) []types.SkillGroup {
	out := make([]types.SkillGroup, len(groups))
	for i, g := range groups {
		out[i] = types.SkillGroup{Name: g.Name, Keywords: slices.Clone(g.Keywords)}
	}
	return out
}

// Normalize replaces nil collections with empty ones so the JSON form always
// has arrays at the addressed paths.
func Normalize(doc *types.Document) {
	if doc.Work == nil {
		doc.Work = []types.WorkEntry{}
	}
	if doc.Education == nil {
		doc.Education = []types.EducationEntry{}
	}
	if doc.SkillGroups == nil {
		doc.SkillGroups = []types.SkillGroup{}
	}
	if doc.Projects == nil {
		doc.Projects = []types.Project{}
	}
	for i := range doc.SkillGroups {
		if doc.SkillGroups[i].Keywords == nil {
			doc.SkillGroups[i].Keywords = []string{}
		}
	}
}

// CheckInvariants verifies that every keyword is unique within its group and
// appears in at most one group, comparing case-insensitively.
func CheckInvariants(doc *types.Document) error {
	owner := make(map[string]string)
	for _, g := range doc.SkillGroups {
		seen := make(map[string]bool)
		for _, k := range g.Keywords {
			key := strings.ToLower(strings.TrimSpace(k))
			if seen[key] {
				return &InvariantError{Keyword: k, Groups: []string{g.Name}}
			}
			seen[key] = true
			if prev, ok := owner[key]; ok {
				return &InvariantError{Keyword: k, Groups: []string{prev, g.Name}}
			}
			owner[key] = g.Name
		}
	}
	return nil
}
