package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// AutoDecider approves everything.
type AutoDecider struct{}

// Decide implements Decider.
func (AutoDecider) Decide(context.Context, types.Proposal, int, int) (Decision, error) {
	return DecisionApply, nil
}

// ScriptedDecider replays a fixed list of decisions and skips once exhausted.
type ScriptedDecider struct {
	Decisions []Decision
	next      int
}

// Decide implements Decider.
func (s *ScriptedDecider) Decide(context.Context, types.Proposal, int, int) (Decision, error) {
	if s.next >= len(s.Decisions) {
		return DecisionSkip, nil
	}
	d := s.Decisions[s.next]
	s.next++
	return d, nil
}

// SelectionDecider approves proposals named by ID or value and skips the rest.
// It serves reviews made ahead of time, such as an HTTP request's approve list.
type SelectionDecider struct {
	Selected []string
}

// Decide implements Decider.
func (s SelectionDecider) Decide(_ context.Context, p types.Proposal, _, _ int) (Decision, error) {
	for _, sel := range s.Selected {
		sel = strings.TrimSpace(sel)
		if sel == p.ID || strings.EqualFold(sel, p.Value) {
			return DecisionApply, nil
		}
	}
	return DecisionSkip, nil
}

// PromptDecider asks on a line-oriented terminal.
type PromptDecider struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPromptDecider reads answers from in and writes prompts to out.
func NewPromptDecider(in io.Reader, out io.Writer) *PromptDecider {
	return &PromptDecider{in: bufio.NewScanner(in), out: out}
}

// ErrInputClosed is returned when the reviewer's input ends.
var ErrInputClosed = errors.New("approval input closed")

// Decide prompts until it reads a recognised answer.
func (d *PromptDecider) Decide(ctx context.Context, p types.Proposal, index, total int) (Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return DecisionSkip, err
		}
		fmt.Fprintf(d.out, "[%d/%d] %s (%s): %s\n", index+1, total, p.Type, p.Priority, p.Value)
		fmt.Fprint(d.out, "Apply? [y]es / [n]o / [i]nspect / [a]pply all / [q]uit (skip rest): ")

		if !d.in.Scan() {
			if err := d.in.Err(); err != nil {
				return DecisionSkip, err
			}
			return DecisionSkip, ErrInputClosed
		}
		if decision, ok := ParseAnswer(d.in.Text()); ok {
			return decision, nil
		}
		fmt.Fprintln(d.out, "Please answer y, n, i, a or q.")
	}
}

// ParseAnswer maps a typed answer to a decision.
func ParseAnswer(answer string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return DecisionApply, true
	case "n", "no", "s", "skip":
		return DecisionSkip, true
	case "i", "inspect", "?":
		return DecisionInspect, true
	case "a", "all":
		return DecisionApproveAll, true
	case "q", "quit", "none":
		return DecisionSkipAll, true
	}
	return DecisionSkip, false
}

// WriteDetails prints every field of a proposal; it is the default inspector
// for terminal reviews.
func WriteDetails(out io.Writer) func(types.Proposal) {
	return func(p types.Proposal) {
		fmt.Fprintf(out, "  id:         %s\n", p.ID)
		fmt.Fprintf(out, "  type:       %s\n", p.Type)
		fmt.Fprintf(out, "  priority:   %s\n", p.Priority)
		fmt.Fprintf(out, "  value:      %s\n", p.Value)
		if p.Action != "" {
			fmt.Fprintf(out, "  action:     %s\n", p.Action)
		}
		fmt.Fprintf(out, "  confidence: %.2f\n", p.Confidence)
		if p.Impact != "" {
			fmt.Fprintf(out, "  impact:     %s\n", p.Impact)
		}
		if p.Section != "" {
			fmt.Fprintf(out, "  section:    %s\n", p.Section)
		}
		for _, op := range p.Ops {
			fmt.Fprintf(out, "  op:         %s %s %v\n", op.Op, op.Path, op.Value)
		}
	}
}
