// Package observability provides logging setup, formatted output for verbose
// CLI mode and the markdown audit report.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, boxWidth-4))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// PrintGapAnalysis outputs matched and missing job keywords.
func (p *Printer) PrintGapAnalysis(gap *types.GapAnalysis) {
	if gap == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Job keywords: %d   Coverage: %.0f%%\n", len(gap.JobKeywords), gap.Coverage*100)
	writeList(&sb, "Matched", gap.Matched)
	writeList(&sb, "Missing", gap.Missing)
	if gap.UsedHeuristics {
		sb.WriteString("\nHeuristic fallback used:\n")
		for _, r := range gap.HeuristicReasons {
			fmt.Fprintf(&sb, "  • %s\n", r)
		}
	}
	p.printBox("GAP ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProposals outputs the candidate proposals in the order they will be reviewed.
func (p *Printer) PrintProposals(proposals []types.Proposal) {
	if len(proposals) == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total proposals: %d\n\n", len(proposals))
	for i, prop := range proposals {
		fmt.Fprintf(&sb, "#%d  [%s] %s\n", i+1, prop.Priority, prop.Type)
		fmt.Fprintf(&sb, "    %s\n", prop.Value)
		if prop.Impact != "" {
			fmt.Fprintf(&sb, "    Impact: %s\n", prop.Impact)
		}
	}
	p.printBox("PROPOSALS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutcomes outputs applied and failed patches.
func (p *Printer) PrintOutcomes(outcomes []types.PatchOutcome) {
	if len(outcomes) == 0 {
		return
	}

	var applied, failed int
	var sb strings.Builder
	for _, o := range outcomes {
		mark := "✓"
		if o.Status == types.OutcomeFailed {
			mark = "✗"
			failed++
		} else {
			applied++
		}
		fmt.Fprintf(&sb, "%s %s (%s)", mark, o.Proposal.Value, o.Mode)
		if o.Reason != "" {
			fmt.Fprintf(&sb, ": %s", o.Reason)
		}
		sb.WriteString("\n")
	}
	title := fmt.Sprintf("PATCHES: %d applied, %d failed", applied, failed)
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSkillGroups outputs the skill categories of a document.
func (p *Printer) PrintSkillGroups(groups []types.SkillGroup) {
	if len(groups) == 0 {
		return
	}

	var sb strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&sb, "%s (%d): %s\n", g.Name, len(g.Keywords), strings.Join(g.Keywords, ", "))
	}
	p.printBox("SKILL GROUPS", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", label)
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}
