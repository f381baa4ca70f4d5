package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/patch"
	"github.com/jonathan/resume-optimizer/internal/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a proposals file to a resume without review",
	Long: `Applies every proposal in a proposals JSON file to a resume and writes the patched JSON resume.
No job description, classifier or approval step is involved; categories are resolved by similarity.`,
	RunE: runApply,
}

var (
	applyResume         string
	applyProposals      string
	applyOutput         string
	applyReport         string
	applyMaxSkillGroups int
)

func init() {
	applyCmd.Flags().StringVarP(&applyResume, "resume", "r", "", "Path to resume (JSON Resume, plain text or PDF) (required)")
	applyCmd.Flags().StringVarP(&applyProposals, "proposals", "p", "", "Path to proposals JSON file (required)")
	applyCmd.Flags().StringVarP(&applyOutput, "out", "o", "", "Path to output resume JSON (default: stdout)")
	applyCmd.Flags().StringVar(&applyReport, "report", "", "Path to write a markdown audit report")
	applyCmd.Flags().IntVar(&applyMaxSkillGroups, "max-skill-groups", patch.DefaultMaxSkillGroups, "Maximum number of skill categories")

	if err := applyCmd.MarkFlagRequired("resume"); err != nil {
		panic(fmt.Sprintf("failed to mark resume flag as required: %v", err))
	}
	if err := applyCmd.MarkFlagRequired("proposals"); err != nil {
		panic(fmt.Sprintf("failed to mark proposals flag as required: %v", err))
	}

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if applyMaxSkillGroups < 1 {
		return fmt.Errorf("--max-skill-groups must be at least 1")
	}

	// 1. Load the resume
	parser := &document.Parser{Extractor: extract.PDFExtractor{}}
	doc, err := parser.Parse(ctx, types.InputSource{Path: applyResume})
	if err != nil {
		return fmt.Errorf("failed to load resume: %w", err)
	}

	// 2. Load and deduplicate proposals
	proposals, err := analysis.LoadProposals(applyProposals)
	if err != nil {
		return err
	}
	for i := range proposals {
		proposals[i] = proposals[i].WithID()
	}
	proposals = patch.Deduplicate(proposals)

	// 3. Apply
	engine := &patch.Engine{
		MaxSkillGroups: applyMaxSkillGroups,
		Logger:         observability.NewLogger(verbose, cmd.ErrOrStderr()),
	}
	res, err := engine.Apply(ctx, doc, proposals)
	if err != nil {
		return fmt.Errorf("apply interrupted: %w", err)
	}
	if err := document.CheckInvariants(res.Document); err != nil {
		return fmt.Errorf("patched resume is invalid: %w", err)
	}

	// 4. Write outputs
	data, err := document.MarshalIndent(res.Document)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), applyOutput, data); err != nil {
		return err
	}
	if applyReport != "" {
		report := observability.BuildAuditReport(observability.Audit{
			Generated: time.Now(),
			Outcomes:  res.Outcomes,
			Before:    doc,
			After:     res.Document,
		})
		if err := os.WriteFile(applyReport, []byte(report), 0644); err != nil {
			return fmt.Errorf("failed to write report file %s: %w", applyReport, err)
		}
	}

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Applied %d of %d proposals\n", len(res.Applied()), len(proposals))
	for _, o := range res.Failed() {
		_, _ = fmt.Fprintf(stderr, "  failed %s %q: %s\n", o.Proposal.Type, o.Proposal.Value, o.Reason)
	}
	return nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
