package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/app"
	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/types"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Optimize a resume for a job description end-to-end",
	Long: `Runs the full workflow: parse -> fetch job description -> analyze -> suggest -> approve -> apply -> export.

Each proposal is shown for review unless --auto-apply is set. Files are only written with --allow-disk and --out.`,
	RunE: runOptimizeCmd,
}

var (
	runResume         string
	runProposals      string
	runJob            string
	runJobURL         string
	runOut            string
	runTheme          string
	runAllowDisk      bool
	runRenderPDF      bool
	runMaxSkillGroups int
	runMaxRetries     int
	runTimeout        int
	runAutoApply      bool
	runAPIKey         string
	runUseBrowser     bool
	runDatabaseURL    string
)

func init() {
	runCommand.Flags().StringVarP(&runResume, "resume", "r", "", "Path to resume (JSON Resume, plain text or PDF)")
	runCommand.Flags().StringVarP(&runProposals, "proposals", "p", "", "Path to a proposals JSON file (skips proposal generation)")
	runCommand.Flags().StringVarP(&runJob, "job", "j", "", "Path to job posting text or HTML file (mutually exclusive with --job-url)")
	runCommand.Flags().StringVar(&runJobURL, "job-url", "", "URL to fetch job posting from (mutually exclusive with --job)")
	runCommand.Flags().StringVarP(&runOut, "out", "o", "", "Output directory for exported artifacts")
	runCommand.Flags().StringVarP(&runTheme, "theme", "t", "", "HTML theme (classic, modern, compact)")
	runCommand.Flags().BoolVar(&runAllowDisk, "allow-disk", false, "Write artifacts under --out")
	runCommand.Flags().BoolVar(&runRenderPDF, "pdf", false, "Render a PDF with headless Chrome")
	runCommand.Flags().IntVar(&runMaxSkillGroups, "max-skill-groups", 0, "Maximum number of skill categories (default 4)")
	runCommand.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Retries for parse and job fetch (default 2)")
	runCommand.Flags().IntVar(&runTimeout, "timeout", 0, "Per-call classifier timeout in seconds (max 10)")
	runCommand.Flags().BoolVarP(&runAutoApply, "auto-apply", "y", false, "Apply every proposal without prompting")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run audits
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runFlags(cmd *cobra.Command) config.Config {
	var cfg config.Config
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("resume") {
		cfg.Resume = runResume
	}
	if cmd.Flags().Changed("proposals") {
		cfg.Proposals = runProposals
	}
	if cmd.Flags().Changed("job") {
		cfg.Job = runJob
	}
	if cmd.Flags().Changed("job-url") {
		cfg.JobURL = runJobURL
	}
	if cmd.Flags().Changed("out") {
		cfg.Output = runOut
	}
	if cmd.Flags().Changed("theme") {
		cfg.Theme = runTheme
	}
	if cmd.Flags().Changed("allow-disk") {
		cfg.AllowDisk = runAllowDisk
	}
	if cmd.Flags().Changed("pdf") {
		cfg.RenderPDF = runRenderPDF
	}
	if cmd.Flags().Changed("max-skill-groups") {
		cfg.MaxSkillGroups = runMaxSkillGroups
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("timeout") {
		cfg.CallTimeoutSeconds = runTimeout
	}
	if cmd.Flags().Changed("auto-apply") {
		cfg.AutoApply = runAutoApply
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	return cfg
}

func runOptimizeCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := resolveConfig(runFlags(cmd), out)
	if err != nil {
		return err
	}
	if cfg.Resume == "" {
		return fmt.Errorf("--resume must be provided (via flag or config)")
	}
	if cfg.Job == "" && cfg.JobURL == "" {
		return fmt.Errorf("either --job or --job-url must be provided (via flag or config)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, cmd.ErrOrStderr())
	components, err := app.Build(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	runner := components.NewRunner()
	runner.OnProgress = progressPrinter(out)
	if !cfg.AutoApply {
		runner.Decider = approval.NewPromptDecider(cmd.InOrStdin(), out)
		runner.Inspect = approval.WriteDetails(out)
	}

	res, runErr := runner.Run(ctx, cfg.ResumeSource(), cfg.JobSource(), cfg.WorkflowOptions())
	if res != nil {
		printSummary(out, res, cfg.Verbose)
	}
	return runErr
}

// mainStages numbers the stages for progress output.
var mainStages = []workflow.Stage{
	workflow.StageParse,
	workflow.StageFetchJD,
	workflow.StageAnalyze,
	workflow.StageSuggest,
	workflow.StageApprove,
	workflow.StageApply,
	workflow.StageExport,
}

func stageNumber(stage workflow.Stage) int {
	for i, s := range mainStages {
		if s == stage {
			return i + 1
		}
	}
	return 0
}

// progressPrinter prints one line per stage transition.
func progressPrinter(out io.Writer) workflow.ProgressCallback {
	return func(event workflow.ProgressEvent) {
		if event.Status == workflow.StatusRetry {
			_, _ = fmt.Fprintf(out, "  ↻ %s\n", event.Message)
			return
		}
		n := stageNumber(event.Stage)
		if n == 0 {
			return
		}
		switch event.Status {
		case workflow.StatusStarted:
			_, _ = fmt.Fprintf(out, "Step %d/%d: %s...\n", n, len(mainStages), event.Message)
		case workflow.StatusFailed:
			_, _ = fmt.Fprintf(out, "  ✗ %s\n", event.Message)
		case workflow.StatusCompleted:
			_, _ = fmt.Fprintf(out, "  ✓ %s\n", event.Message)
		}
	}
}

func printSummary(out io.Writer, res *workflow.Result, verbose bool) {
	if verbose {
		printer := observability.NewPrinter(out)
		if res.Gap != nil {
			printer.PrintGapAnalysis(res.Gap)
		}
		outcomes := append(append([]types.PatchOutcome(nil), res.AppliedPatches...), res.FailedPatches...)
		printer.PrintOutcomes(outcomes)
		if res.Document != nil {
			printer.PrintSkillGroups(res.Document.SkillGroups)
		}
	}

	_, _ = fmt.Fprintf(out, "\nRun %s: %d applied, %d failed, %d skipped\n",
		res.RunID, len(res.AppliedPatches), len(res.FailedPatches), len(res.Skipped))
	for _, o := range res.FailedPatches {
		_, _ = fmt.Fprintf(out, "  failed %s %q: %s\n", o.Proposal.Type, o.Proposal.Value, o.Reason)
	}

	if res.Artifacts == nil {
		return
	}
	for _, w := range res.Artifacts.Warnings {
		_, _ = fmt.Fprintf(out, "  warning: %s\n", w)
	}
	if len(res.Artifacts.Paths) == 0 {
		_, _ = fmt.Fprintln(out, "Artifacts kept in memory; pass --allow-disk --out DIR to write them.")
		return
	}
	for _, name := range sortedKeys(res.Artifacts.Paths) {
		_, _ = fmt.Fprintf(out, "  wrote %s\n", res.Artifacts.Paths[name])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
