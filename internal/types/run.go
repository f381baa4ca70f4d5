package types

import "time"

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

// Run statuses
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the persisted summary of one workflow run.
type RunRecord struct {
	ID             string         `json:"id"`
	Status         RunStatus      `json:"status"`
	Stage          string         `json:"stage"`
	DocumentSource string         `json:"document_source,omitempty"`
	JobSource      string         `json:"job_source,omitempty"`
	Coverage       float64        `json:"coverage"`
	Outcomes       []PatchOutcome `json:"outcomes,omitempty"`
	Errors         []string       `json:"errors,omitempty"`
	Document       *Document      `json:"document,omitempty"`
	Report         string         `json:"report,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// StageEvent is one stage transition of a run.
type StageEvent struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Retries int       `json:"retries"`
	At      time.Time `json:"at"`
}
