package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/types"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

// maxRequestBytes bounds run request bodies.
const maxRequestBytes = 4 << 20

// RunRequest represents the request body for /runs and /runs/stream.
// The resume is either a JSON document (resume) or plain text (resume_text);
// the job description is either inline text or a URL to fetch.
//
// Without auto_apply or approve every proposal is skipped and returned for
// review. Proposal IDs are stable, so a follow-up request can approve a
// subset by listing their IDs (or values) in approve.
type RunRequest struct {
	Resume         json.RawMessage  `json:"resume,omitempty"`
	ResumeText     string           `json:"resume_text,omitempty"`
	JobText        string           `json:"job_text,omitempty"`
	JobURL         string           `json:"job_url,omitempty" validate:"omitempty,url"`
	Proposals      []types.Proposal `json:"proposals,omitempty"`
	AutoApply      bool             `json:"auto_apply,omitempty"`
	Approve        []string         `json:"approve,omitempty" validate:"omitempty,dive,required"`
	Theme          string           `json:"theme,omitempty" validate:"omitempty,oneof=classic modern compact"`
	MaxSkillGroups int              `json:"max_skill_groups,omitempty" validate:"gte=0,lte=20"`
	RenderPDF      bool             `json:"render_pdf,omitempty"`
}

// RunResponse is the result of a run. HTML and PDF carry the rendered
// artifacts, which the embedded Result leaves out of its JSON.
type RunResponse struct {
	*workflow.Result
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	HTML   string `json:"html,omitempty"`
	PDF    []byte `json:"pdf,omitempty"`
}

// Run statuses reported to clients
const (
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

var requestValidator = validator.New()

// validate checks the request shape and returns the document and job sources.
func (req *RunRequest) validate() (types.InputSource, types.InputSource, error) {
	var docSrc, jobSrc types.InputSource

	switch {
	case len(req.Resume) > 0 && req.ResumeText != "":
		return docSrc, jobSrc, &ErrValidation{Field: "resume", Message: "resume and resume_text are mutually exclusive"}
	case len(req.Resume) > 0:
		docSrc.Inline = string(req.Resume)
	case req.ResumeText != "":
		docSrc.Inline = req.ResumeText
	default:
		return docSrc, jobSrc, &ErrValidation{Field: "resume", Message: "resume or resume_text is required"}
	}

	switch {
	case req.JobText != "" && req.JobURL != "":
		return docSrc, jobSrc, &ErrValidation{Field: "job", Message: "job_text and job_url are mutually exclusive"}
	case req.JobText != "":
		jobSrc.Inline = req.JobText
	case req.JobURL != "":
		jobSrc.URL = req.JobURL
	default:
		return docSrc, jobSrc, &ErrValidation{Field: "job", Message: "job_text or job_url is required"}
	}

	if err := requestValidator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return docSrc, jobSrc, &ErrValidation{Field: fieldErrs[0].Field(), Message: fieldErrs[0].Tag()}
		}
		return docSrc, jobSrc, &ErrValidation{Field: "request", Message: err.Error()}
	}

	if len(req.Proposals) > 0 {
		set := types.ProposalSet{Proposals: req.Proposals}
		if err := set.Validate(); err != nil {
			return docSrc, jobSrc, &ErrValidation{Field: "proposals", Message: err.Error()}
		}
	}
	return docSrc, jobSrc, nil
}

func (req *RunRequest) options() workflow.Options {
	return workflow.Options{
		AutoApply:      req.AutoApply,
		Theme:          req.Theme,
		MaxSkillGroups: req.MaxSkillGroups,
		RenderPDF:      req.RenderPDF,
	}
}

// runnerFor copies the template runner and applies the request's proposals
// and approvals.
func (s *Server) runnerFor(req *RunRequest) *workflow.Runner {
	r := s.runner
	if r.Logger == nil {
		r.Logger = s.logger
	}
	if len(req.Proposals) > 0 {
		r.Generator = analysis.StaticGenerator{Proposals: req.Proposals}
	}
	if len(req.Approve) > 0 {
		r.Decider = approval.SelectionDecider{Selected: req.Approve}
	}
	return &r
}

func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (*RunRequest, types.InputSource, types.InputSource, bool) {
	var req RunRequest
	var docSrc, jobSrc types.InputSource

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, docSrc, jobSrc, false
	}
	docSrc, jobSrc, err := req.validate()
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return nil, docSrc, jobSrc, false
	}
	return &req, docSrc, jobSrc, true
}

// respond builds the client response for a finished run and remembers it.
func (s *Server) respond(res *workflow.Result, err error) *RunResponse {
	resp := &RunResponse{Result: res, Status: runStatusCompleted}
	if err != nil {
		resp.Status = runStatusFailed
		resp.Error = err.Error()
	}
	if res != nil {
		if res.Artifacts != nil {
			resp.HTML = res.Artifacts.HTML
			resp.PDF = res.Artifacts.PDF
		}
		s.recent.put(res.RunID, resp)
	}
	return resp
}

// handleRun runs a workflow synchronously and returns its result.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, docSrc, jobSrc, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	res, err := s.runnerFor(req).Run(r.Context(), docSrc, jobSrc, req.options())
	if res == nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := s.respond(res, err)
	status := http.StatusOK
	if err != nil {
		status = HTTPStatus(err)
		s.logger.WithFields(logrus.Fields{"run_id": res.RunID, "stage": res.Stage}).WithError(err).Warn("run failed")
	}
	s.jsonResponse(w, status, resp)
}

// handleRunStream runs a workflow and streams stage progress via SSE. The
// final event is "result" with the RunResponse, followed by "complete".
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, docSrc, jobSrc, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runner := s.runnerFor(req)
	runner.OnProgress = func(event workflow.ProgressEvent) {
		if err := sse.WriteEvent("stage", event); err != nil {
			s.logger.WithError(err).Debug("failed to write SSE event")
		}
	}

	res, err := runner.Run(r.Context(), docSrc, jobSrc, req.options())
	if res == nil {
		sse.WriteError(err.Error())
		return
	}

	resp := s.respond(res, err)
	if err := sse.WriteEvent("result", resp); err != nil {
		s.logger.WithError(err).Debug("failed to write SSE result")
	}
	sse.WriteComplete(res.RunID, resp.Status)
}

// handleGetRun returns a run served by this process or, failing that, the
// persisted record.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	if resp, ok := s.recent.get(id); ok {
		s.jsonResponse(w, http.StatusOK, resp)
		return
	}
	if s.history == nil {
		s.writeError(w, &ErrRunNotFound{RunID: id})
		return
	}

	run, err := s.history.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if run == nil {
		s.writeError(w, &ErrRunNotFound{RunID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleListRuns lists persisted runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, ErrNoDatabase)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []types.RunRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleListStages returns the stage transitions of a persisted run.
func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, ErrNoDatabase)
		return
	}

	stages, err := s.history.ListStages(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if stages == nil {
		stages = []types.StageEvent{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"stages": stages})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
		s.errorResponse(w, status, "internal error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
