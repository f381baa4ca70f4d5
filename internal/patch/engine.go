package patch

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Engine applies approved proposals to a document.
type Engine struct {
	Resolver       *Resolver
	Weights        Weights
	MaxSkillGroups int
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// Result is the document after a batch plus one outcome per attempted proposal,
// in application order.
type Result struct {
	Document *types.Document
	Outcomes []types.PatchOutcome
}

// Applied returns the successful outcomes.
func (r *Result) Applied() []types.PatchOutcome {
	return r.filter(types.OutcomeApplied)
}

// Failed returns the unsuccessful outcomes.
func (r *Result) Failed() []types.PatchOutcome {
	return r.filter(types.OutcomeFailed)
}

func (r *Result) filter(status types.OutcomeStatus) []types.PatchOutcome {
	var out []types.PatchOutcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// SortByPriority returns proposals ordered high, medium, low, keeping the
// input order within a priority.
func SortByPriority(proposals []types.Proposal) []types.Proposal {
	out := append([]types.Proposal(nil), proposals...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// Apply runs the batch. Each proposal sees the edits of those before it and
// either applies completely or not at all; a failed proposal never undoes
// earlier ones. Skill groups are consolidated once the batch finishes.
//
// If ctx is cancelled between proposals, Apply stops and returns the result
// committed so far together with the context error.
func (e *Engine) Apply(ctx context.Context, doc *types.Document, proposals []types.Proposal) (*Result, error) {
	log := e.logger()
	current := document.Clone(doc)
	document.Normalize(current)
	structured := current.HasStructure()

	res := &Result{}
	var textChanges []TextChange

	for _, p := range SortByPriority(proposals) {
		if err := ctx.Err(); err != nil {
			res.Document = e.finishText(current, structured, textChanges)
			return res, err
		}

		outcome := types.PatchOutcome{Proposal: p}
		if structured {
			next, change := e.applyStructured(ctx, current, textChanges, p, &outcome)
			if next != nil {
				current = next
			}
			if change != nil {
				textChanges = append(textChanges, *change)
			}
		} else {
			e.applyText(current, p, &outcome)
		}
		outcome.Timestamp = e.now()
		res.Outcomes = append(res.Outcomes, outcome)

		log.WithFields(logrus.Fields{
			"proposal": p.ID,
			"type":     p.Type,
			"status":   outcome.Status,
			"mode":     outcome.Mode,
			"reason":   outcome.Reason,
		}).Debug("proposal processed")
	}

	current = e.finishText(current, structured, textChanges)
	current.SkillGroups = Consolidate(current.SkillGroups, e.maxGroups())
	switch {
	case current.Sections == nil:
	case structured && !touches(textChanges, types.SectionSkills):
		// Keep the text view in step with the consolidated groups.
		current.Sections.Skills = document.FlattenSkills(current.SkillGroups)
	default:
		current.Sections.Skills = ConsolidateText(current.Sections.Skills, e.maxGroups())
	}
	res.Document = current
	return res, nil
}

// applyStructured tries the structural path and falls back to a textual edit
// of the flattened view when the proposal has no structural mapping.
func (e *Engine) applyStructured(ctx context.Context, current *types.Document, changes []TextChange, p types.Proposal, outcome *types.PatchOutcome) (*types.Document, *TextChange) {
	plan := PlanStructural(ctx, p, current, e.resolver())
	outcome.Mode = types.ModeStructural

	switch {
	case plan.Err != nil:
		fail(outcome, plan.Err)
		return nil, nil

	case plan.NoMapping:
		outcome.Mode = types.ModeTextual
		view := replayText(current, changes)
		change, err := ApplyTextual(&view, p, e.weights())
		if err != nil {
			fail(outcome, err)
			return nil, nil
		}
		outcome.Status = types.OutcomeApplied
		outcome.Section = change.Section
		outcome.Added = change.Added
		return nil, &change
	}

	next, err := ApplyOps(current, plan.Ops)
	if err != nil {
		fail(outcome, err)
		return nil, nil
	}
	outcome.Status = types.OutcomeApplied
	outcome.Ops = plan.Ops
	return next, nil
}

func (e *Engine) applyText(current *types.Document, p types.Proposal, outcome *types.PatchOutcome) {
	outcome.Mode = types.ModeTextual
	if current.Sections == nil {
		current.Sections = &types.TextSections{}
	}
	view := *current.Sections
	change, err := ApplyTextual(&view, p, e.weights())
	if err != nil {
		fail(outcome, err)
		return
	}
	*current.Sections = view
	outcome.Status = types.OutcomeApplied
	outcome.Section = change.Section
	outcome.Added = change.Added
}

// finishText stores the textual edits made against a structured document as
// its sections view.
func (e *Engine) finishText(current *types.Document, structured bool, changes []TextChange) *types.Document {
	if structured && len(changes) > 0 {
		view := replayText(current, changes)
		current.Sections = &view
	}
	return current
}

// replayText flattens the structured document and reapplies earlier textual
// edits so they survive later structural ones.
func replayText(doc *types.Document, changes []TextChange) types.TextSections {
	view := document.Flatten(doc)
	if doc.Sections != nil {
		view = *doc.Sections
	}
	for _, c := range changes {
		c.replay(&view)
	}
	return view
}

func touches(changes []TextChange, section string) bool {
	for _, c := range changes {
		if c.Section == section {
			return true
		}
	}
	return false
}

func fail(outcome *types.PatchOutcome, err error) {
	outcome.Status = types.OutcomeFailed
	outcome.Reason = reason(err)
}

// reason flattens known failures to their sentinel text.
func reason(err error) string {
	for _, sentinel := range []error{ErrAlreadyExists, ErrNoWorkEntries} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (e *Engine) resolver() *Resolver {
	if e.Resolver != nil {
		return e.Resolver
	}
	return &Resolver{Weights: e.weights(), Timeout: DefaultClassifierTimeout}
}

func (e *Engine) weights() Weights {
	if e.Weights.IsZero() && e.Resolver != nil {
		return e.Resolver.Weights.orDefault()
	}
	return e.Weights.orDefault()
}

func (e *Engine) maxGroups() int {
	if e.MaxSkillGroups > 0 {
		return e.MaxSkillGroups
	}
	return DefaultMaxSkillGroups
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() logrus.FieldLogger {
	if e.Logger != nil {
		return e.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
