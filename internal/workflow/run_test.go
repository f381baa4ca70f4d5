package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/export"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/patch"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const resumeJSON = `{
  "basics": {"name": "Ada Lovelace", "summary": "Backend engineer"},
  "work": [{"name": "Acme", "position": "Engineer", "highlights": ["Built APIs"]}],
  "skills": [{"name": "Core", "keywords": ["Python", "Docker"]}]
}`

const jobText = "We are hiring an engineer with React, Python and Docker experience."

var fixedNow = time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)

// flakyParser fails the first failures calls.
type flakyParser struct {
	failures int
	calls    int
}

func (p *flakyParser) Parse(ctx context.Context, src types.InputSource) (*types.Document, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, &document.ParseError{Source: src.String(), Message: fmt.Sprintf("attempt %d failed", p.calls)}
	}
	return (&document.Parser{}).Parse(ctx, src)
}

type failingFetcher struct {
	err   error
	calls int
}

func (f *failingFetcher) Fetch(context.Context, types.InputSource) (*fetch.JobDescription, error) {
	f.calls++
	return nil, f.err
}

// stubFetcher returns the same result on every call.
type stubFetcher struct {
	jd    *fetch.JobDescription
	calls int
}

func (f *stubFetcher) Fetch(context.Context, types.InputSource) (*fetch.JobDescription, error) {
	f.calls++
	return f.jd, nil
}

// nilParser reports success without a document.
type nilParser struct {
	calls int
}

func (p *nilParser) Parse(context.Context, types.InputSource) (*types.Document, error) {
	p.calls++
	return nil, nil
}

// blockingClassifier never answers before its deadline.
type blockingClassifier struct {
	calls int
}

func (c *blockingClassifier) ClassifyCategory(ctx context.Context, _ string, _ []patch.CategoryHint) (int, error) {
	c.calls++
	<-ctx.Done()
	return 0, ctx.Err()
}

// cancellingDecider approves the first proposal and cancels the run.
type cancellingDecider struct {
	cancel context.CancelFunc
}

func (d cancellingDecider) Decide(context.Context, types.Proposal, int, int) (approval.Decision, error) {
	d.cancel()
	return approval.DecisionApply, nil
}

type recordingSink struct {
	mu       sync.Mutex
	started  *types.RunRecord
	stages   []types.StageEvent
	finished *types.RunRecord
}

func (s *recordingSink) StartRun(_ context.Context, run *types.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = run
	return nil
}

func (s *recordingSink) RecordStage(_ context.Context, event types.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, event)
	return nil
}

func (s *recordingSink) FinishRun(_ context.Context, run *types.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = run
	return nil
}

func skill(value string, priority types.Priority) types.Proposal {
	return types.NewProposal(types.ProposalAddSkill, priority, value, types.ActionAdd, 0.9)
}

func newTestRunner(proposals ...types.Proposal) *Runner {
	logger, _ := test.NewNullLogger()
	return &Runner{
		Generator: analysis.StaticGenerator{Proposals: proposals},
		Logger:    logger,
		Now:       func() time.Time { return fixedNow },
		NewID:     func() string { return "run-1" },
	}
}

func inline(s string) types.InputSource {
	return types.InputSource{Inline: s}
}

func TestRun_EndToEnd(t *testing.T) {
	runner := newTestRunner(skill("Python", types.PriorityHigh), skill("React", types.PriorityMedium))

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{AutoApply: true})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, StageEnd, res.Stage)

	require.Len(t, res.AppliedPatches, 1)
	assert.Equal(t, "React", res.AppliedPatches[0].Proposal.Value)
	require.Len(t, res.FailedPatches, 1)
	assert.Equal(t, "Python", res.FailedPatches[0].Proposal.Value)
	assert.Equal(t, "already exists", res.FailedPatches[0].Reason)

	require.Len(t, res.Document.SkillGroups, 1)
	assert.Equal(t, "Core", res.Document.SkillGroups[0].Name)
	assert.Equal(t, []string{"Python", "Docker", "React"}, res.Document.SkillGroups[0].Keywords)

	require.NotNil(t, res.Gap)
	assert.Contains(t, res.Gap.Missing, "React")

	require.NotNil(t, res.Artifacts)
	assert.Contains(t, res.Artifacts.HTML, "React")
	assert.Contains(t, res.Artifacts.Report, "already exists")
	assert.Empty(t, res.Artifacts.Paths)
	assert.NotEmpty(t, res.Log)
	assert.True(t, strings.HasPrefix(res.Log[0], "2026-04-05T06:07:08Z [start]"))
}

func TestRun_ParseRetryBound(t *testing.T) {
	parser := &flakyParser{failures: 3}
	runner := newTestRunner()
	runner.Parser = parser

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
	require.Error(t, err)

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StageParse, wfErr.Stage)
	assert.Equal(t, 2, wfErr.Retries)
	assert.Equal(t, 3, parser.calls)

	var parseErr *document.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "attempt 3 failed")

	require.NotNil(t, res)
	assert.Equal(t, StageEnd, res.Stage)
	assert.Nil(t, res.Document)
}

func TestRun_ParseRecoversOnRetry(t *testing.T) {
	parser := &flakyParser{failures: 1}
	runner := newTestRunner()
	runner.Parser = parser

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, parser.calls)
	assert.NotNil(t, res.Document)
	assert.True(t, containsLine(res.Log, "retrying parse (1/2)"))
}

func TestRun_NoRetries(t *testing.T) {
	parser := &flakyParser{failures: 1}
	runner := newTestRunner()
	runner.Parser = parser

	_, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{MaxRetries: NoRetries})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, 0, wfErr.Retries)
	assert.Equal(t, 1, parser.calls)
}

func TestRun_FetchFailureIsCollaboratorError(t *testing.T) {
	fetcher := &failingFetcher{err: &fetch.Error{URL: "https://jobs.example.com/1", Message: "HTTP 503"}}
	runner := newTestRunner()
	runner.Fetcher = fetcher

	_, err := runner.Run(context.Background(), inline(resumeJSON), types.InputSource{URL: "https://jobs.example.com/1"}, Options{})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StageFetchJD, wfErr.Stage)
	assert.Equal(t, 2, wfErr.Retries)
	assert.Equal(t, 3, fetcher.calls)

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, KindFailure, collabErr.Kind)
	assert.Equal(t, "job fetcher", collabErr.Collaborator)
}

func TestRun_EmptyJobDescriptionRetriesFetch(t *testing.T) {
	tests := []struct {
		name string
		jd   *fetch.JobDescription
	}{
		{"blank text", &fetch.JobDescription{Source: "inline", Text: " \n\t"}},
		{"no description", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{jd: tt.jd}
			runner := newTestRunner(skill("React", types.PriorityHigh))
			runner.Fetcher = fetcher

			res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, fetch.ErrEmptyText)

			var wfErr *WorkflowError
			require.ErrorAs(t, err, &wfErr)
			assert.Equal(t, StageFetchJD, wfErr.Stage)
			assert.Equal(t, 2, wfErr.Retries)
			assert.Equal(t, 3, fetcher.calls)

			require.NotNil(t, res)
			assert.Nil(t, res.Gap)
			assert.True(t, containsLine(res.Log, "retrying fetch_jd (2/2)"))
		})
	}
}

func TestRun_ParserWithoutDocumentRetries(t *testing.T) {
	parser := &nilParser{}
	runner := newTestRunner()
	runner.Parser = parser

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
	require.Error(t, err)

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StageParse, wfErr.Stage)
	assert.Equal(t, 2, wfErr.Retries)
	assert.Equal(t, 3, parser.calls)

	var parseErr *document.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "parser returned no document", parseErr.Message)

	require.NotNil(t, res)
	assert.Nil(t, res.Document)
}

func TestRun_NoProposalsSkipsApproval(t *testing.T) {
	runner := newTestRunner()
	decided := false
	runner.Inspect = func(types.Proposal) { decided = true }

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
	require.NoError(t, err)

	assert.False(t, decided)
	assert.Empty(t, res.Proposals)
	assert.Empty(t, res.AppliedPatches)
	assert.Empty(t, res.FailedPatches)
	assert.False(t, containsLine(res.Log, "approved"))
	require.NotNil(t, res.Artifacts)
	assert.Equal(t, []string{"Python", "Docker"}, res.Document.SkillGroups[0].Keywords)
}

func TestRun_ZeroApprovalsStillExports(t *testing.T) {
	runner := newTestRunner(skill("React", types.PriorityHigh))
	runner.Decider = &approval.ScriptedDecider{Decisions: []approval.Decision{approval.DecisionSkip}}

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{})
	require.NoError(t, err)

	assert.Empty(t, res.AppliedPatches)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "React", res.Skipped[0].Value)
	assert.NotNil(t, res.Artifacts)
}

func TestRun_CancellationDuringApproval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := newTestRunner(skill("React", types.PriorityHigh), skill("Kafka", types.PriorityMedium))
	runner.Decider = cancellingDecider{cancel: cancel}

	res, err := runner.Run(ctx, inline(resumeJSON), inline(jobText), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StageApprove, wfErr.Stage)

	require.NotNil(t, res)
	assert.Empty(t, res.AppliedPatches)
	assert.Nil(t, res.Artifacts)
	assert.Equal(t, []string{"Python", "Docker"}, res.Document.SkillGroups[0].Keywords)
}

func TestRun_ClassifierTimeoutFallsBack(t *testing.T) {
	doc := `{"basics":{"name":"Ada"},"skills":[
		{"name":"Languages","keywords":["Go","Python"]},
		{"name":"Infrastructure","keywords":["Docker","Terraform"]}
	]}`
	classifier := &blockingClassifier{}
	runner := newTestRunner(skill("Kubernetes", types.PriorityHigh))
	runner.Classifier = classifier

	res, err := runner.Run(context.Background(), inline(doc), inline("Kubernetes and Go"), Options{
		AutoApply:   true,
		CallTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, classifier.calls)
	require.Len(t, res.AppliedPatches, 1)
	assert.True(t, res.Document.HasKeyword("Kubernetes"))
}

func TestRun_WritesArtifactsWhenAllowed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	runner := newTestRunner(skill("React", types.PriorityHigh))

	res, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{
		AutoApply:  true,
		AllowDisk:  true,
		OutputPath: dir,
	})
	require.NoError(t, err)

	require.Contains(t, res.Artifacts.Paths, export.FileJSON)
	data, err := os.ReadFile(filepath.Join(dir, export.FileJSON))
	require.NoError(t, err)
	assert.Contains(t, string(data), "React")
}

func TestRun_ValidationErrors(t *testing.T) {
	runner := newTestRunner()

	tests := []struct {
		name   string
		doc    types.InputSource
		job    types.InputSource
		opts   Options
		field  string
	}{
		{"missing document", types.InputSource{}, inline(jobText), Options{}, "document"},
		{"missing job", inline(resumeJSON), types.InputSource{}, Options{}, "job"},
		{"disk without path", inline(resumeJSON), inline(jobText), Options{AllowDisk: true}, "OutputPath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runner.Run(context.Background(), tt.doc, tt.job, tt.opts)
			assert.Nil(t, res)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestRun_ProgressAndAudit(t *testing.T) {
	var events []ProgressEvent
	sink := &recordingSink{}
	runner := newTestRunner(skill("React", types.PriorityHigh))
	runner.OnProgress = func(e ProgressEvent) { events = append(events, e) }
	runner.Audit = sink

	_, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{AutoApply: true})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, StageStart, events[0].Stage)
	assert.Equal(t, StatusStarted, events[0].Status)
	assert.Equal(t, "run-1", events[0].RunID)

	var stages []Stage
	for _, e := range events {
		if e.Status == StatusCompleted {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []Stage{StageStart, StageParse, StageFetchJD, StageAnalyze, StageSuggest, StageApprove, StageApply, StageExport}, stages)

	require.NotNil(t, sink.started)
	assert.Equal(t, types.RunRunning, sink.started.Status)
	assert.Len(t, sink.stages, len(stages))
	require.NotNil(t, sink.finished)
	assert.Equal(t, types.RunCompleted, sink.finished.Status)
	assert.Equal(t, string(StageEnd), sink.finished.Stage)
	assert.NotEmpty(t, sink.finished.Report)
}

func TestRun_AuditRecordsFailure(t *testing.T) {
	sink := &recordingSink{}
	runner := newTestRunner()
	runner.Parser = &flakyParser{failures: 5}
	runner.Audit = sink

	_, err := runner.Run(context.Background(), inline(resumeJSON), inline(jobText), Options{MaxRetries: NoRetries})
	require.Error(t, err)

	require.NotNil(t, sink.finished)
	assert.Equal(t, types.RunFailed, sink.finished.Status)
	assert.Equal(t, string(StageParse), sink.finished.Stage)
	require.Len(t, sink.finished.Errors, 1)
	assert.Contains(t, sink.finished.Errors[0], "attempt 1 failed")
}

func TestCollaboratorError_Kinds(t *testing.T) {
	live := context.Background()
	assert.Equal(t, KindTimeout, collaboratorError(live, "x", context.DeadlineExceeded).Kind)
	assert.Equal(t, KindFailure, collaboratorError(live, "x", errors.New("boom")).Kind)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, KindFailure, collaboratorError(cancelled, "x", context.Canceled).Kind)
}

func TestWorkflowError_Message(t *testing.T) {
	err := &WorkflowError{
		RunID:   "r",
		Stage:   StageParse,
		Retries: 2,
		Errors:  []error{&ProcessingError{Stage: StageParse, Message: "failed to parse document"}},
	}
	assert.Equal(t, "run r failed at parse after 2 retries: parse: failed to parse document", err.Error())
}

func containsLine(lines []string, fragment string) bool {
	for _, l := range lines {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}
