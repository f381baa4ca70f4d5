package approval

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/types"
)

func proposals(values ...string) []types.Proposal {
	out := make([]types.Proposal, len(values))
	for i, v := range values {
		out[i] = types.NewProposal(types.ProposalAddSkill, types.PriorityMedium, v, types.ActionAdd, 0.5)
	}
	return out
}

func valuesOf(ps []types.Proposal) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Value)
	}
	return out
}

type failingDecider struct{ after int }

func (f *failingDecider) Decide(context.Context, types.Proposal, int, int) (Decision, error) {
	if f.after == 0 {
		return DecisionSkip, errors.New("terminal closed")
	}
	f.after--
	return DecisionApply, nil
}

func TestGate_Run(t *testing.T) {
	tests := []struct {
		name        string
		gate        *Gate
		wantApplied []string
		wantSkipped []string
		interrupted bool
	}{
		{
			name:        "auto apply",
			gate:        &Gate{AutoApply: true},
			wantApplied: []string{"A", "B", "C", "D"},
			wantSkipped: []string{},
		},
		{
			name:        "individual decisions",
			gate:        &Gate{Decider: &ScriptedDecider{Decisions: []Decision{DecisionApply, DecisionSkip, DecisionSkip, DecisionApply}}},
			wantApplied: []string{"A", "D"},
			wantSkipped: []string{"B", "C"},
		},
		{
			name:        "approve all covers the rest",
			gate:        &Gate{Decider: &ScriptedDecider{Decisions: []Decision{DecisionSkip, DecisionApproveAll}}},
			wantApplied: []string{"B", "C", "D"},
			wantSkipped: []string{"A"},
		},
		{
			name:        "skip all covers the rest",
			gate:        &Gate{Decider: &ScriptedDecider{Decisions: []Decision{DecisionApply, DecisionSkipAll}}},
			wantApplied: []string{"A"},
			wantSkipped: []string{"B", "C", "D"},
		},
		{
			name:        "inspect then decide",
			gate:        &Gate{Decider: &ScriptedDecider{Decisions: []Decision{DecisionInspect, DecisionApply, DecisionInspect, DecisionInspect, DecisionSkip, DecisionApproveAll}}},
			wantApplied: []string{"A", "C", "D"},
			wantSkipped: []string{"B"},
		},
		{
			name:        "decider error skips remaining",
			gate:        &Gate{Decider: &failingDecider{after: 1}},
			wantApplied: []string{"A"},
			wantSkipped: []string{"B", "C", "D"},
			interrupted: true,
		},
		{
			name:        "no decider skips everything",
			gate:        &Gate{},
			wantApplied: []string{},
			wantSkipped: []string{"A", "B", "C", "D"},
			interrupted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := proposals("A", "B", "C", "D")
			review := tt.gate.Run(context.Background(), input)

			assert.Equal(t, tt.wantApplied, valuesOf(review.Applied))
			assert.Equal(t, tt.wantSkipped, valuesOf(review.Skipped))
			assert.Equal(t, tt.interrupted, review.Interrupted != nil)

			applied, skipped := review.Counts()
			assert.Equal(t, len(input), applied+skipped)
			for _, s := range review.States {
				assert.NotEqual(t, StatePending, s)
			}
		})
	}
}

func TestGate_InspectCallsInspectorAndIsBounded(t *testing.T) {
	var inspected []string
	gate := &Gate{
		Decider:        &ScriptedDecider{Decisions: []Decision{DecisionInspect, DecisionInspect, DecisionInspect}},
		Inspect:        func(p types.Proposal) { inspected = append(inspected, p.Value) },
		MaxInspections: 2,
	}

	review := gate.Run(context.Background(), proposals("A"))

	assert.Equal(t, []string{"A", "A"}, inspected)
	assert.Equal(t, []State{StateSkipped}, review.States)
}

func TestGate_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	review := (&Gate{Decider: AutoDecider{}}).Run(ctx, proposals("A", "B"))
	assert.Empty(t, review.Applied)
	assert.ErrorIs(t, review.Interrupted, context.Canceled)
}

func TestGate_EmptyInput(t *testing.T) {
	review := (&Gate{}).Run(context.Background(), nil)
	assert.Empty(t, review.Applied)
	assert.Empty(t, review.Skipped)
	assert.NoError(t, review.Interrupted)
}

func TestPromptDecider(t *testing.T) {
	in := strings.NewReader("maybe\ny\ni\nn\na\n")
	var out bytes.Buffer
	var details bytes.Buffer
	gate := &Gate{Decider: NewPromptDecider(in, &out), Inspect: WriteDetails(&details)}

	review := gate.Run(context.Background(), proposals("Go", "Rust", "Kafka", "GCP"))

	assert.Equal(t, []string{"Go", "Kafka", "GCP"}, valuesOf(review.Applied))
	assert.Equal(t, []string{"Rust"}, valuesOf(review.Skipped))
	assert.Contains(t, out.String(), "[1/4] add_skill (medium): Go")
	assert.Contains(t, out.String(), "Please answer")
	assert.Contains(t, details.String(), "value:      Rust")
}

func TestPromptDecider_InputClosed(t *testing.T) {
	gate := &Gate{Decider: NewPromptDecider(strings.NewReader("y\n"), &bytes.Buffer{})}

	review := gate.Run(context.Background(), proposals("Go", "Rust"))

	require.ErrorIs(t, review.Interrupted, ErrInputClosed)
	assert.Equal(t, []string{"Go"}, valuesOf(review.Applied))
	assert.Equal(t, []string{"Rust"}, valuesOf(review.Skipped))
}

func TestParseAnswer(t *testing.T) {
	tests := map[string]Decision{
		"y": DecisionApply, "YES": DecisionApply, " n ": DecisionSkip,
		"i": DecisionInspect, "a": DecisionApproveAll, "q": DecisionSkipAll,
	}
	for in, want := range tests {
		got, ok := ParseAnswer(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseAnswer("later")
	assert.False(t, ok)
}

func TestSelectionDecider(t *testing.T) {
	ps := proposals("Go", "React", "Kafka")
	decider := SelectionDecider{Selected: []string{ps[2].ID, "react"}}

	review := (&Gate{Decider: decider}).Run(context.Background(), ps)

	assert.Equal(t, []string{"React", "Kafka"}, valuesOf(review.Applied))
	assert.Equal(t, []string{"Go"}, valuesOf(review.Skipped))
	assert.NoError(t, review.Interrupted)
}
