package workflow

import (
	"fmt"
	"time"

	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// State is the mutable record of a single run. It is created by Run and never
// shared between runs.
type State struct {
	RunID   string
	Stage   Stage
	Errors  []error
	Retries map[Stage]int
	Log     []string
	// Failed is the stage that sent the run to the error stage.
	Failed Stage

	Document  *types.Document
	Original  *types.Document
	JobText   string
	Gap       *types.GapAnalysis
	Proposals []types.Proposal
	Review    *approval.Review
	Outcomes  []types.PatchOutcome
	Artifacts *types.ExportArtifacts

	now func() time.Time
}

func newState(runID string, now func() time.Time) *State {
	return &State{
		RunID:   runID,
		Stage:   StageStart,
		Retries: make(map[Stage]int),
		now:     now,
	}
}

// logf appends a timestamped line to the processing log.
func (s *State) logf(format string, args ...any) {
	line := fmt.Sprintf("%s [%s] %s", s.now().UTC().Format(time.RFC3339), s.Stage, fmt.Sprintf(format, args...))
	s.Log = append(s.Log, line)
}

func (s *State) fail(err error) {
	s.Errors = append(s.Errors, err)
}

func (s *State) errorStrings() []string {
	out := make([]string, 0, len(s.Errors))
	for _, err := range s.Errors {
		out = append(out, err.Error())
	}
	return out
}
