package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/server/ratelimit"
	"github.com/jonathan/resume-optimizer/internal/types"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

const resumeJSON = `{
  "basics": {"name": "Ada Lovelace"},
  "work": [{"name": "Acme", "position": "Engineer", "highlights": ["Built APIs"]}],
  "skills": [{"name": "Core", "keywords": ["Python", "Docker"]}]
}`

const jobText = "We are hiring an engineer with React, Python and Docker experience."

// mockHistory is an in-memory RunHistory
type mockHistory struct {
	runs   map[string]*types.RunRecord
	stages map[string][]types.StageEvent
}

func newMockHistory() *mockHistory {
	return &mockHistory{
		runs:   make(map[string]*types.RunRecord),
		stages: make(map[string][]types.StageEvent),
	}
}

func (m *mockHistory) GetRun(_ context.Context, runID string) (*types.RunRecord, error) {
	if runID == "not-a-uuid" {
		return nil, fmt.Errorf("%w %q", db.ErrInvalidRunID, runID)
	}
	return m.runs[runID], nil
}

func (m *mockHistory) ListRuns(_ context.Context, limit int) ([]types.RunRecord, error) {
	var out []types.RunRecord
	for _, r := range m.runs {
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockHistory) ListStages(_ context.Context, runID string) ([]types.StageEvent, error) {
	if runID == "not-a-uuid" {
		return nil, fmt.Errorf("%w %q", db.ErrInvalidRunID, runID)
	}
	return m.stages[runID], nil
}

// failingParser never produces a document.
type failingParser struct{}

func (failingParser) Parse(_ context.Context, src types.InputSource) (*types.Document, error) {
	return nil, &document.ParseError{Source: src.String(), Message: "unreadable"}
}

func newTestServer(t *testing.T, runner workflow.Runner, history RunHistory) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	n := 0
	if runner.NewID == nil {
		runner.NewID = func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		}
	}
	s := New(Config{
		Runner:    runner,
		History:   history,
		RateLimit: &ratelimit.Config{Enabled: false},
		Logger:    logger,
	})
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func runBody(t *testing.T, fields map[string]any) string {
	t.Helper()
	body := map[string]any{
		"resume":   json.RawMessage(resumeJSON),
		"job_text": jobText,
	}
	for k, v := range fields {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

func skillProposals(values ...string) []map[string]any {
	out := make([]map[string]any, 0, len(values))
	for i, v := range values {
		priority := "medium"
		if i == 0 {
			priority = "high"
		}
		out = append(out, map[string]any{"type": "add_skill", "priority": priority, "value": v, "confidence": 0.9})
	}
	return out
}

func decodeRun(t *testing.T, w *httptest.ResponseRecorder) RunResponse {
	t.Helper()
	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func outcomeValues(outcomes []types.PatchOutcome) []string {
	out := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Proposal.Value)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRunEndpoint_InvalidJSON(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs", `{invalid json}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestRunEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{name: "missing resume", fields: map[string]any{"resume": nil}, want: "resume"},
		{name: "both resume forms", fields: map[string]any{"resume_text": "Skills\nGo"}, want: "mutually exclusive"},
		{name: "missing job", fields: map[string]any{"job_text": nil}, want: "job"},
		{name: "both job forms", fields: map[string]any{"job_url": "https://example.com/job"}, want: "mutually exclusive"},
		{name: "bad job url", fields: map[string]any{"job_text": nil, "job_url": "not a url"}, want: "JobURL"},
		{name: "unknown theme", fields: map[string]any{"theme": "neon"}, want: "Theme"},
		{name: "too many groups", fields: map[string]any{"max_skill_groups": 50}, want: "MaxSkillGroups"},
		{name: "invalid proposal", fields: map[string]any{"proposals": []map[string]any{{"type": "rewrite_everything", "priority": "high", "value": "x"}}}, want: "proposals"},
	}

	s := newTestServer(t, workflow.Runner{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, tt.fields))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestRunEndpoint_AutoApply(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, map[string]any{
		"proposals":  skillProposals("Python", "React"),
		"auto_apply": true,
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeRun(t, w)
	assert.Equal(t, runStatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, []string{"React"}, outcomeValues(resp.AppliedPatches))
	assert.Equal(t, []string{"Python"}, outcomeValues(resp.FailedPatches))
	assert.Contains(t, resp.HTML, "React")
	assert.True(t, resp.Document.HasKeyword("React"))
}

func TestRunEndpoint_ApproveSubset(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, map[string]any{
		"proposals": skillProposals("React", "Kafka"),
		"approve":   []string{"react"},
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeRun(t, w)
	assert.Equal(t, []string{"React"}, outcomeValues(resp.AppliedPatches))
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "Kafka", resp.Skipped[0].Value)
	assert.Equal(t, types.ProposalID(types.ProposalAddSkill, "Kafka"), resp.Skipped[0].ID)
}

func TestRunEndpoint_NoApprovalSkipsAll(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, map[string]any{
		"proposals": skillProposals("React"),
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeRun(t, w)
	assert.Empty(t, resp.AppliedPatches)
	require.Len(t, resp.Skipped, 1)
	assert.False(t, resp.Document.HasKeyword("React"))
}

func TestRunEndpoint_WorkflowFailure(t *testing.T) {
	s := newTestServer(t, workflow.Runner{Parser: failingParser{}}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeRun(t, w)
	assert.Equal(t, runStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "failed at parse")
	require.NotNil(t, resp.Result)
	assert.Equal(t, workflow.StageEnd, resp.Stage)
}

func TestRunStreamEndpoint(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs/stream", runBody(t, map[string]any{
		"proposals":  skillProposals("React"),
		"auto_apply": true,
	}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, `"stage":"parse"`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "event: complete")
	assert.Less(t, strings.Index(body, "event: result"), strings.Index(body, "event: complete"))
	assert.Contains(t, body, `"status":"completed"`)
}

func TestRunStreamEndpoint_ValidationBeforeStream(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodPost, "/runs/stream", `{"job_text":"Go"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestGetRun_FromRecentRuns(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)
	w := doRequest(t, s, http.MethodPost, "/runs", runBody(t, map[string]any{"proposals": skillProposals("React")}))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", decodeRun(t, w).RunID)

	w = doRequest(t, s, http.MethodGet, "/runs/run-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpoints_WithoutDatabase(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	for _, path := range []string{"/runs", "/runs/abc/stages"} {
		w := doRequest(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	history := newMockHistory()
	id := "0b5a3f7e-1c2d-4e5f-8a9b-0c1d2e3f4a5b"
	history.runs[id] = &types.RunRecord{ID: id, Status: types.RunCompleted, Stage: "end", StartedAt: time.Now()}
	history.stages[id] = []types.StageEvent{{RunID: id, Stage: "parse", Status: "completed"}}
	s := newTestServer(t, workflow.Runner{}, history)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "get run", path: "/runs/" + id, wantCode: http.StatusOK, wantBody: `"status":"completed"`},
		{name: "missing run", path: "/runs/9d3c1b2a-0000-4000-8000-000000000000", wantCode: http.StatusNotFound},
		{name: "invalid id", path: "/runs/not-a-uuid", wantCode: http.StatusBadRequest},
		{name: "list runs", path: "/runs", wantCode: http.StatusOK, wantBody: `"count":1`},
		{name: "bad limit", path: "/runs?limit=0", wantCode: http.StatusBadRequest},
		{name: "stages", path: "/runs/" + id + "/stages", wantCode: http.StatusOK, wantBody: `"stage":"parse"`},
		{name: "stages invalid id", path: "/runs/not-a-uuid/stages", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(Config{
		Logger: logger,
		RateLimit: &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/runs", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
			},
		},
	})
	defer s.rateLimiter.Stop()

	first := doRequest(t, s, http.MethodPost, "/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := doRequest(t, s, http.MethodPost, "/runs", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "rate_limit_exceeded")

	health := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)

	w := doRequest(t, s, http.MethodOptions, "/runs", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Body.String())
}

func TestSSEWriter(t *testing.T) {
	w := httptest.NewRecorder()

	sse, err := NewSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("stage", map[string]string{"stage": "parse"}))
	sse.WriteComplete("run-1", "completed")

	body := w.Body.String()
	assert.Contains(t, body, "id: 1\nevent: stage\ndata: {\"stage\":\"parse\"}\n\n")
	assert.Contains(t, body, "id: 2\nevent: complete\n")
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}

func TestSSEWriter_EncodeError(t *testing.T) {
	sse, err := NewSSEWriter(httptest.NewRecorder())
	require.NoError(t, err)

	assert.Error(t, sse.WriteEvent("stage", make(chan int)))
}

func TestResultCache_EvictsOldest(t *testing.T) {
	c := newResultCache(2)
	c.put("a", &RunResponse{Status: "completed"})
	c.put("b", &RunResponse{Status: "completed"})
	c.put("c", &RunResponse{Status: "failed"})

	_, ok := c.get("a")
	assert.False(t, ok)
	got, ok := c.get("c")
	require.True(t, ok)
	assert.Equal(t, "failed", got.Status)

	c.put("", &RunResponse{})
	assert.Len(t, c.order, 2)
}

func TestRunRequest_MaxBodySize(t *testing.T) {
	s := newTestServer(t, workflow.Runner{}, nil)
	big := `{"resume_text":"` + string(bytes.Repeat([]byte("a"), maxRequestBytes+1)) + `","job_text":"Go"}`

	w := doRequest(t, s, http.MethodPost, "/runs", big)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
