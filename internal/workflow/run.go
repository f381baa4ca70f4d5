package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/export"
	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/patch"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// ProgressEvent represents a stage transition during a run
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when a run makes progress
type ProgressCallback func(event ProgressEvent)

// Progress statuses
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRetry     = "retry"
)

// DocumentParser loads the resume document.
type DocumentParser interface {
	Parse(ctx context.Context, src types.InputSource) (*types.Document, error)
}

// JobSource loads the job description text.
type JobSource interface {
	Fetch(ctx context.Context, src types.InputSource) (*fetch.JobDescription, error)
}

// Exporter produces the final artifacts.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*types.ExportArtifacts, error)
}

// AuditSink persists run progress. Sink errors are logged and never fail a run.
type AuditSink interface {
	StartRun(ctx context.Context, run *types.RunRecord) error
	RecordStage(ctx context.Context, event types.StageEvent) error
	FinishRun(ctx context.Context, run *types.RunRecord) error
}

// Runner wires the collaborators of a run. Nil collaborators fall back to
// the built-in parser, fetcher, heuristic generator and exporter; a nil
// Extractor or Classifier means heuristics only.
type Runner struct {
	Parser     DocumentParser
	Fetcher    JobSource
	Extractor  analysis.KeywordExtractor
	Classifier patch.CategoryClassifier
	Generator  analysis.Generator
	Decider    approval.Decider
	Inspect    func(p types.Proposal)
	Exporter   Exporter
	Audit      AuditSink
	Logger     logrus.FieldLogger
	OnProgress ProgressCallback
	Now        func() time.Time
	NewID      func() string
}

// Result is what a run produced. It is returned even when the run failed,
// holding everything committed up to the failure.
type Result struct {
	RunID          string                 `json:"run_id"`
	Stage          Stage                  `json:"stage"`
	Document       *types.Document        `json:"document,omitempty"`
	Gap            *types.GapAnalysis     `json:"gap,omitempty"`
	Proposals      []types.Proposal       `json:"proposals,omitempty"`
	AppliedPatches []types.PatchOutcome   `json:"applied_patches"`
	FailedPatches  []types.PatchOutcome   `json:"failed_patches"`
	Skipped        []types.Proposal       `json:"skipped,omitempty"`
	Artifacts      *types.ExportArtifacts `json:"artifacts,omitempty"`
	Log            []string               `json:"log"`
}

// Run executes one workflow from start to end. Invalid options or sources
// return a *ValidationError before any stage runs. A run that reaches the
// error stage returns its partial Result together with a *WorkflowError.
func (r *Runner) Run(ctx context.Context, docSrc, jobSrc types.InputSource, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if docSrc.IsZero() {
		return nil, &ValidationError{Field: "document", Message: "no source given"}
	}
	if jobSrc.IsZero() {
		return nil, &ValidationError{Field: "job", Message: "no source given"}
	}

	st := newState(r.newID(), r.now)
	x := &execution{
		runner: r,
		st:     st,
		opts:   opts.withDefaults(),
		docSrc: docSrc,
		jobSrc: jobSrc,
		log:    r.logger().WithField("run_id", st.RunID),
	}

	x.startAudit(ctx)
	for st.Stage != StageEnd {
		x.step(ctx)
	}
	x.finishAudit(ctx)

	res := x.result()
	if st.Failed != "" {
		return res, &WorkflowError{
			RunID:   st.RunID,
			Stage:   st.Failed,
			Retries: st.Retries[st.Failed],
			Errors:  append([]error(nil), st.Errors...),
		}
	}
	return res, nil
}

// execution is the per-run view of a Runner.
type execution struct {
	runner *Runner
	st     *State
	opts   Options
	docSrc types.InputSource
	jobSrc types.InputSource
	log    logrus.FieldLogger
	// content is attached to the next progress event for the current stage.
	content any
}

func (x *execution) step(ctx context.Context) {
	st := x.st
	current := st.Stage

	if target, ok := retryTarget(current); ok {
		st.Retries[target]++
		st.Errors = nil
		st.logf("retrying %s (%d/%d)", target, st.Retries[target], x.opts.MaxRetries)
		x.emit(target, StatusRetry, fmt.Sprintf("Retrying %s", target), nil)
		st.Stage = Next(current, Outcome{})
		return
	}

	x.emit(current, StatusStarted, describe(current), nil)
	o := x.run(ctx, current)
	if ctx.Err() != nil {
		o.Cancelled = true
	}
	next := Next(current, o)

	if o.Cancelled && len(st.Errors) == 0 {
		st.fail(&ProcessingError{Stage: current, Message: "run cancelled", Cause: ctx.Err()})
	}

	status := StatusCompleted
	switch {
	case next == StageError && current != StageError:
		st.Failed = current
		status = StatusFailed
	case next == StageRetryParse || next == StageRetryFetchJD:
		status = StatusFailed
	}
	if status == StatusFailed {
		for _, err := range st.Errors {
			st.logf("error: %v", err)
			x.log.WithField("stage", current).WithError(err).Warn("stage failed")
		}
	}
	x.record(ctx, current, status)
	st.Stage = next
}

func (x *execution) run(ctx context.Context, s Stage) Outcome {
	switch s {
	case StageStart:
		x.st.logf("run started (document %s, job %s)", x.docSrc, x.jobSrc)
		return Outcome{}
	case StageParse:
		return x.parse(ctx)
	case StageFetchJD:
		return x.fetchJD(ctx)
	case StageAnalyze:
		return x.analyze(ctx)
	case StageSuggest:
		return x.suggest(ctx)
	case StageApprove:
		return x.approve(ctx)
	case StageApply:
		return x.apply(ctx)
	case StageExport:
		return x.export(ctx)
	case StageError:
		x.st.logf("run failed at %s", x.st.Failed)
		return Outcome{}
	}
	return Outcome{Err: fmt.Errorf("unknown stage %q", s)}
}

func (x *execution) parse(ctx context.Context) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, x.opts.CallTimeout)
	defer cancel()

	doc, err := x.runner.parser().Parse(callCtx, x.docSrc)
	if err != nil {
		var (
			cause      = err
			extractErr *extract.ExtractionError
		)
		if errors.As(err, &extractErr) || errors.Is(err, context.DeadlineExceeded) {
			cause = collaboratorError(ctx, "text extractor", err)
		}
		return x.failed(ctx, StageParse, "failed to parse document", cause)
	}
	if doc == nil {
		return x.failed(ctx, StageParse, "failed to parse document",
			&document.ParseError{Source: x.docSrc.String(), Message: "parser returned no document"})
	}

	document.Normalize(doc)
	x.st.Document = doc
	x.st.Original = document.Clone(doc)
	x.st.logf("parsed document (structured=%t, %d skill groups)", doc.HasStructure(), len(doc.SkillGroups))
	return Outcome{}
}

func (x *execution) fetchJD(ctx context.Context) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, x.opts.CallTimeout)
	defer cancel()

	jd, err := x.runner.fetcher().Fetch(callCtx, x.jobSrc)
	switch {
	case errors.Is(err, fetch.ErrEmptyText):
		return x.failed(ctx, StageFetchJD, "job description is empty", err)
	case err != nil:
		return x.failed(ctx, StageFetchJD, "failed to fetch job description", collaboratorError(ctx, "job fetcher", err))
	case jd == nil || strings.TrimSpace(jd.Text) == "":
		return x.failed(ctx, StageFetchJD, "job description is empty", fetch.ErrEmptyText)
	}

	x.st.JobText = jd.Text
	x.st.logf("fetched job description from %s (%d chars, platform %s, browser=%t)", jd.Source, len(jd.Text), jd.Platform, jd.UsedBrowser)
	return Outcome{}
}

func (x *execution) analyze(ctx context.Context) Outcome {
	var extractor analysis.KeywordExtractor
	if x.runner.Extractor != nil {
		extractor = timedExtractor{inner: x.runner.Extractor, timeout: x.opts.CallTimeout}
	}

	gap, err := analysis.Analyze(ctx, x.st.Document, x.st.JobText, extractor)
	if err != nil {
		return x.failed(ctx, StageAnalyze, "gap analysis failed", err)
	}
	for _, reason := range gap.HeuristicReasons {
		x.st.logf("heuristic fallback: %s", reason)
		x.log.WithField("reason", reason).Warn("keyword extraction fell back to heuristics")
	}

	x.st.Gap = gap
	x.st.logf("coverage %.0f%% (%d matched, %d missing)", gap.Coverage*100, len(gap.Matched), len(gap.Missing))
	x.content = gap
	return Outcome{}
}

func (x *execution) suggest(ctx context.Context) Outcome {
	proposals, err := x.runner.generator().Suggest(ctx, x.st.Document, x.st.Gap)
	if err != nil {
		return x.failed(ctx, StageSuggest, "failed to generate proposals", err)
	}

	unique := patch.Deduplicate(proposals)
	x.st.Proposals = unique
	x.st.logf("generated %d proposals (%d after deduplication)", len(proposals), len(unique))
	x.content = unique
	return Outcome{Proposals: len(unique), Cancelled: ctx.Err() != nil}
}

func (x *execution) approve(ctx context.Context) Outcome {
	gate := &approval.Gate{
		Decider:   x.runner.Decider,
		Inspect:   x.runner.Inspect,
		AutoApply: x.opts.AutoApply,
	}
	review := gate.Run(ctx, x.st.Proposals)
	x.st.Review = review

	applied, skipped := review.Counts()
	x.st.logf("approved %d, skipped %d", applied, skipped)
	if review.Interrupted != nil {
		x.st.logf("review interrupted: %v", review.Interrupted)
		x.log.WithError(review.Interrupted).Warn("review interrupted, remaining proposals skipped")
	}
	return Outcome{Cancelled: ctx.Err() != nil}
}

func (x *execution) apply(ctx context.Context) Outcome {
	var approved []types.Proposal
	if x.st.Review != nil {
		approved = x.st.Review.Applied
	}

	engine := &patch.Engine{
		Resolver: &patch.Resolver{
			Weights:    x.opts.Weights,
			Classifier: x.runner.Classifier,
			Timeout:    x.opts.CallTimeout,
		},
		Weights:        x.opts.Weights,
		MaxSkillGroups: x.opts.MaxSkillGroups,
		Logger:         x.log,
		Now:            x.runner.Now,
	}

	res, err := engine.Apply(ctx, x.st.Document, approved)
	if res != nil {
		if res.Document != nil {
			x.st.Document = res.Document
		}
		x.st.Outcomes = res.Outcomes
	}
	if err != nil {
		return x.failed(ctx, StageApply, "patch batch interrupted", err)
	}
	if err := document.CheckInvariants(x.st.Document); err != nil {
		return x.failed(ctx, StageApply, "patched document is inconsistent", err)
	}

	for _, o := range res.Failed() {
		x.st.logf("patch %s failed: %s", o.Proposal.ID, o.Reason)
	}
	x.st.logf("applied %d patches, %d failed, %d skill groups", len(res.Applied()), len(res.Failed()), len(x.st.Document.SkillGroups))
	x.content = res.Outcomes
	return Outcome{}
}

func (x *execution) export(ctx context.Context) Outcome {
	var skipped []types.Proposal
	if x.st.Review != nil {
		skipped = x.st.Review.Skipped
	}

	report := observability.BuildAuditReport(observability.Audit{
		RunID:     x.st.RunID,
		Generated: x.runner.now(),
		Gap:       x.st.Gap,
		Outcomes:  x.st.Outcomes,
		Skipped:   skipped,
		Before:    x.st.Original,
		After:     x.st.Document,
	})

	art, err := x.runner.exporter(x.log).Export(ctx, export.Request{
		Document:   x.st.Document,
		Report:     report,
		Theme:      x.opts.Theme,
		RenderPDF:  x.opts.RenderPDF,
		AllowDisk:  x.opts.AllowDisk,
		OutputPath: x.opts.OutputPath,
	})
	if err != nil {
		return x.failed(ctx, StageExport, "export failed", err)
	}

	x.st.Artifacts = art
	x.content = art
	for _, w := range art.Warnings {
		x.st.logf("export warning: %s", w)
	}
	if len(art.Paths) > 0 {
		x.st.logf("wrote %d artifacts to %s", len(art.Paths), x.opts.OutputPath)
	} else {
		x.st.logf("export kept in memory")
	}
	return Outcome{}
}

// failed records a ProcessingError for stage and reports the outcome with
// the retry counters the transition needs.
func (x *execution) failed(ctx context.Context, stage Stage, message string, cause error) Outcome {
	err := &ProcessingError{Stage: stage, Message: message, Cause: cause}
	x.st.fail(err)
	return Outcome{
		Err:        err,
		Cancelled:  ctx.Err() != nil,
		Retries:    x.st.Retries[stage],
		MaxRetries: x.opts.MaxRetries,
	}
}

func (x *execution) result() *Result {
	st := x.st
	res := &Result{
		RunID:          st.RunID,
		Stage:          st.Stage,
		Document:       st.Document,
		Gap:            st.Gap,
		Proposals:      st.Proposals,
		AppliedPatches: []types.PatchOutcome{},
		FailedPatches:  []types.PatchOutcome{},
		Artifacts:      st.Artifacts,
		Log:            append([]string(nil), st.Log...),
	}
	for _, o := range st.Outcomes {
		if o.Status == types.OutcomeApplied {
			res.AppliedPatches = append(res.AppliedPatches, o)
		} else {
			res.FailedPatches = append(res.FailedPatches, o)
		}
	}
	if st.Review != nil {
		res.Skipped = st.Review.Skipped
	}
	return res
}

func (x *execution) emit(stage Stage, status, message string, content any) {
	if x.runner.OnProgress == nil {
		return
	}
	x.runner.OnProgress(ProgressEvent{
		Stage:   stage,
		Status:  status,
		Message: message,
		RunID:   x.st.RunID,
		Content: content,
	})
}

func (x *execution) record(ctx context.Context, stage Stage, status string) {
	x.log.WithFields(logrus.Fields{"stage": stage, "status": status}).Debug("stage finished")
	message := describe(stage) + " done"
	if status != StatusCompleted {
		message = describe(stage) + " failed"
	}
	x.emit(stage, status, message, x.content)
	x.content = nil
	if x.runner.Audit == nil {
		return
	}
	event := types.StageEvent{
		RunID:   x.st.RunID,
		Stage:   string(stage),
		Status:  status,
		Retries: x.st.Retries[stage],
		At:      x.runner.now(),
	}
	if n := len(x.st.Errors); n > 0 && status != StatusCompleted {
		event.Message = x.st.Errors[n-1].Error()
	}
	if err := x.runner.Audit.RecordStage(context.WithoutCancel(ctx), event); err != nil {
		x.log.WithError(err).Warn("failed to record stage")
	}
}

func (x *execution) startAudit(ctx context.Context) {
	if x.runner.Audit == nil {
		return
	}
	run := &types.RunRecord{
		ID:             x.st.RunID,
		Status:         types.RunRunning,
		Stage:          string(StageStart),
		DocumentSource: x.docSrc.String(),
		JobSource:      x.jobSrc.String(),
		StartedAt:      x.runner.now(),
	}
	if err := x.runner.Audit.StartRun(ctx, run); err != nil {
		x.log.WithError(err).Warn("failed to record run start, continuing without persistence")
	}
}

func (x *execution) finishAudit(ctx context.Context) {
	if x.runner.Audit == nil {
		return
	}
	finished := x.runner.now()
	run := &types.RunRecord{
		ID:             x.st.RunID,
		Status:         types.RunCompleted,
		Stage:          string(x.st.Stage),
		DocumentSource: x.docSrc.String(),
		JobSource:      x.jobSrc.String(),
		Outcomes:       x.st.Outcomes,
		Document:       x.st.Document,
		FinishedAt:     &finished,
	}
	if x.st.Gap != nil {
		run.Coverage = x.st.Gap.Coverage
	}
	if x.st.Artifacts != nil {
		run.Report = x.st.Artifacts.Report
	}
	if x.st.Failed != "" {
		run.Status = types.RunFailed
		run.Stage = string(x.st.Failed)
		run.Errors = x.st.errorStrings()
	}
	if err := x.runner.Audit.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		x.log.WithError(err).Warn("failed to record run result")
	}
}

func describe(s Stage) string {
	switch s {
	case StageStart:
		return "Starting run"
	case StageParse:
		return "Parsing document"
	case StageFetchJD:
		return "Fetching job description"
	case StageAnalyze:
		return "Analyzing keyword gap"
	case StageSuggest:
		return "Generating proposals"
	case StageApprove:
		return "Reviewing proposals"
	case StageApply:
		return "Applying patches"
	case StageExport:
		return "Exporting artifacts"
	case StageError:
		return "Handling failure"
	}
	return string(s)
}

// timedExtractor caps each keyword extraction call.
type timedExtractor struct {
	inner   analysis.KeywordExtractor
	timeout time.Duration
}

func (t timedExtractor) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.ExtractKeywords(ctx, text)
}

func (r *Runner) parser() DocumentParser {
	if r.Parser != nil {
		return r.Parser
	}
	return &document.Parser{Extractor: extract.PDFExtractor{}}
}

func (r *Runner) fetcher() JobSource {
	if r.Fetcher != nil {
		return r.Fetcher
	}
	return &fetch.JobFetcher{Logger: r.logger()}
}

func (r *Runner) generator() analysis.Generator {
	if r.Generator != nil {
		return r.Generator
	}
	return &analysis.HeuristicGenerator{Logger: r.logger()}
}

func (r *Runner) exporter(log logrus.FieldLogger) Exporter {
	if r.Exporter != nil {
		return r.Exporter
	}
	return &export.Exporter{Logger: log, Now: r.Now}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Runner) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.New().String()
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
