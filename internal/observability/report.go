package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Audit is the input to the markdown audit report.
type Audit struct {
	RunID     string
	Generated time.Time
	Gap       *types.GapAnalysis
	Outcomes  []types.PatchOutcome
	Skipped   []types.Proposal
	Before    *types.Document
	After     *types.Document
}

// ChangedSections lists the text sections whose content differs between
// before and after, in display order.
func ChangedSections(before, after *types.Document) []string {
	if before == nil || after == nil {
		return nil
	}
	a, b := document.TextView(before), document.TextView(after)
	var changed []string
	for _, name := range types.SectionNames {
		x, _ := a.Get(name)
		y, _ := b.Get(name)
		if x != y {
			changed = append(changed, name)
		}
	}
	return changed
}

// BuildAuditReport renders the audit as markdown.
func BuildAuditReport(a Audit) string {
	var sb strings.Builder
	sb.WriteString("# Resume Optimization Report\n\n")
	if a.RunID != "" {
		fmt.Fprintf(&sb, "- Run: `%s`\n", a.RunID)
	}
	if !a.Generated.IsZero() {
		fmt.Fprintf(&sb, "- Generated: %s\n", a.Generated.UTC().Format(time.RFC3339))
	}

	var applied, failed []types.PatchOutcome
	for _, o := range a.Outcomes {
		if o.Status == types.OutcomeApplied {
			applied = append(applied, o)
		} else {
			failed = append(failed, o)
		}
	}
	fmt.Fprintf(&sb, "- Applied: %d, Failed: %d, Skipped: %d\n", len(applied), len(failed), len(a.Skipped))

	if a.Gap != nil {
		sb.WriteString("\n## Keyword Coverage\n\n")
		fmt.Fprintf(&sb, "Coverage: %.0f%% (%d of %d job keywords)\n\n", a.Gap.Coverage*100, len(a.Gap.Matched), len(a.Gap.JobKeywords))
		if len(a.Gap.Missing) > 0 {
			fmt.Fprintf(&sb, "Missing: %s\n", strings.Join(a.Gap.Missing, ", "))
		}
		for _, r := range a.Gap.HeuristicReasons {
			fmt.Fprintf(&sb, "\n> Heuristic fallback: %s\n", r)
		}
	}

	if len(applied) > 0 {
		sb.WriteString("\n## Applied Patches\n\n")
		sb.WriteString("| Type | Value | Mode | Change |\n|---|---|---|---|\n")
		for _, o := range applied {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", o.Proposal.Type, cell(o.Proposal.Value), o.Mode, cell(describeChange(o)))
		}
	}

	if len(failed) > 0 {
		sb.WriteString("\n## Failed Patches\n\n")
		sb.WriteString("| Type | Value | Reason |\n|---|---|---|\n")
		for _, o := range failed {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", o.Proposal.Type, cell(o.Proposal.Value), cell(o.Reason))
		}
	}

	if len(a.Skipped) > 0 {
		sb.WriteString("\n## Skipped Proposals\n\n")
		for _, p := range a.Skipped {
			fmt.Fprintf(&sb, "- %s: %s\n", p.Type, p.Value)
		}
	}

	if changed := ChangedSections(a.Before, a.After); len(changed) > 0 {
		sb.WriteString("\n## Changed Sections\n\n")
		for _, name := range changed {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}

	if a.After != nil && len(a.After.SkillGroups) > 0 {
		sb.WriteString("\n## Skill Groups\n\n")
		for _, g := range a.After.SkillGroups {
			fmt.Fprintf(&sb, "- **%s**: %s\n", g.Name, strings.Join(g.Keywords, ", "))
		}
	}
	return sb.String()
}

func describeChange(o types.PatchOutcome) string {
	if o.Mode == types.ModeTextual {
		return fmt.Sprintf("%s += %s", o.Section, o.Added)
	}
	paths := make([]string, 0, len(o.Ops))
	for _, op := range o.Ops {
		paths = append(paths, op.Op+" "+op.Path)
	}
	return strings.Join(paths, "; ")
}

// cell keeps table cells on one line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
