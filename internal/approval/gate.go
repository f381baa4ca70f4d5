// Package approval decides which proposals are applied, either interactively
// or automatically.
package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// State is the approval state of one proposal.
type State string

// Approval states
const (
	StatePending State = "pending"
	StateApplied State = "applied"
	StateSkipped State = "skipped"
)

// Decision is a reviewer's answer for the current proposal.
type Decision int

// Decisions
const (
	DecisionApply Decision = iota
	DecisionSkip
	DecisionInspect
	DecisionApproveAll
	DecisionSkipAll
)

func (d Decision) String() string {
	switch d {
	case DecisionApply:
		return "apply"
	case DecisionSkip:
		return "skip"
	case DecisionInspect:
		return "inspect"
	case DecisionApproveAll:
		return "approve-all"
	case DecisionSkipAll:
		return "skip-all"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// DefaultMaxInspections bounds how often one proposal can be inspected before
// it is skipped.
const DefaultMaxInspections = 3

// Decider answers for one proposal at a time.
type Decider interface {
	Decide(ctx context.Context, p types.Proposal, index, total int) (Decision, error)
}

// ErrNoDecider is recorded when a non-automatic gate has nobody to ask.
var ErrNoDecider = errors.New("no decider configured")

// Gate walks proposals in order and records a terminal state for each.
type Gate struct {
	Decider        Decider
	Inspect        func(p types.Proposal)
	AutoApply      bool
	MaxInspections int
}

// Review is the outcome of a gate run. States is index-aligned with Proposals;
// Applied and Skipped keep the original order.
type Review struct {
	Proposals []types.Proposal
	States    []State
	Applied   []types.Proposal
	Skipped   []types.Proposal
	// Interrupted is set when the decider failed or the context ended; every
	// undecided proposal was skipped.
	Interrupted error
}

// Run reviews proposals. Every proposal ends Applied or Skipped.
func (g *Gate) Run(ctx context.Context, proposals []types.Proposal) *Review {
	r := &Review{
		Proposals: proposals,
		States:    make([]State, len(proposals)),
	}
	for i := range r.States {
		r.States[i] = StatePending
	}

	bulk := StatePending
	switch {
	case g.AutoApply:
		bulk = StateApplied
	case g.Decider == nil && len(proposals) > 0:
		bulk = StateSkipped
		r.Interrupted = ErrNoDecider
	}

	for i, p := range proposals {
		if bulk != StatePending {
			r.States[i] = bulk
			continue
		}
		if err := ctx.Err(); err != nil {
			r.Interrupted = err
			bulk = StateSkipped
			r.States[i] = bulk
			continue
		}

		state, all, err := g.decideOne(ctx, p, i, len(proposals))
		if err != nil {
			r.Interrupted = err
			bulk = StateSkipped
			r.States[i] = bulk
			continue
		}
		r.States[i] = state
		if all {
			bulk = state
		}
	}

	for i, s := range r.States {
		if s == StateApplied {
			r.Applied = append(r.Applied, proposals[i])
		} else {
			r.Skipped = append(r.Skipped, proposals[i])
		}
	}
	return r
}

// decideOne asks until it gets a terminal answer. all reports a bulk decision
// that also covers the remaining proposals.
func (g *Gate) decideOne(ctx context.Context, p types.Proposal, index, total int) (State, bool, error) {
	maxInspections := g.MaxInspections
	if maxInspections <= 0 {
		maxInspections = DefaultMaxInspections
	}

	for inspections := 0; ; {
		d, err := g.Decider.Decide(ctx, p, index, total)
		if err != nil {
			return StateSkipped, false, fmt.Errorf("decision for proposal %s failed: %w", p.ID, err)
		}

		switch d {
		case DecisionApply:
			return StateApplied, false, nil
		case DecisionSkip:
			return StateSkipped, false, nil
		case DecisionApproveAll:
			return StateApplied, true, nil
		case DecisionSkipAll:
			return StateSkipped, true, nil
		case DecisionInspect:
			inspections++
			if inspections > maxInspections {
				return StateSkipped, false, nil
			}
			if g.Inspect != nil {
				g.Inspect(p)
			}
		default:
			return StateSkipped, false, nil
		}
	}
}

// Counts returns how many proposals ended in each state.
func (r *Review) Counts() (applied, skipped int) {
	return len(r.Applied), len(r.Skipped)
}
