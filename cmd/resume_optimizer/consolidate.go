package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/patch"
	"github.com/jonathan/resume-optimizer/internal/types"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge skill categories down to a maximum count",
	Long:  "Merges the smallest skill categories of a resume into their most similar neighbours until at most --max-skill-groups remain. No keyword is lost.",
	RunE:  runConsolidate,
}

var (
	consolidateResume         string
	consolidateOutput         string
	consolidateMaxSkillGroups int
)

func init() {
	consolidateCmd.Flags().StringVarP(&consolidateResume, "resume", "r", "", "Path to resume (required)")
	consolidateCmd.Flags().StringVarP(&consolidateOutput, "out", "o", "", "Path to output resume JSON (default: stdout)")
	consolidateCmd.Flags().IntVar(&consolidateMaxSkillGroups, "max-skill-groups", patch.DefaultMaxSkillGroups, "Maximum number of skill categories")

	if err := consolidateCmd.MarkFlagRequired("resume"); err != nil {
		panic(fmt.Sprintf("failed to mark resume flag as required: %v", err))
	}

	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, _ []string) error {
	if consolidateMaxSkillGroups < 1 {
		return fmt.Errorf("--max-skill-groups must be at least 1")
	}

	parser := &document.Parser{Extractor: extract.PDFExtractor{}}
	doc, err := parser.Parse(cmd.Context(), types.InputSource{Path: consolidateResume})
	if err != nil {
		return fmt.Errorf("failed to load resume: %w", err)
	}

	before := len(doc.SkillGroups)
	doc.SkillGroups = patch.Consolidate(doc.SkillGroups, consolidateMaxSkillGroups)
	if doc.Sections != nil {
		if doc.HasStructure() {
			doc.Sections.Skills = document.FlattenSkills(doc.SkillGroups)
		} else {
			doc.Sections.Skills = patch.ConsolidateText(doc.Sections.Skills, consolidateMaxSkillGroups)
		}
	}

	data, err := document.MarshalIndent(doc)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), consolidateOutput, data); err != nil {
		return err
	}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintSkillGroups(doc.SkillGroups)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Skill categories: %d -> %d\n", before, len(doc.SkillGroups))
	return nil
}
