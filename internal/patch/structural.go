package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// defaultGroupName names the group created when a document has none.
const defaultGroupName = "Skills"

// Plan is the structural translation of one proposal. Exactly one of Ops,
// NoMapping or Err is meaningful.
type Plan struct {
	Ops        []types.EditOp
	NoMapping  bool
	Err        error
	Resolution *Resolution
}

// PlanStructural maps a proposal onto edit operations against doc without
// changing it. Proposals whose type has no structural form return NoMapping
// so the caller can fall back to a textual edit.
func PlanStructural(ctx context.Context, p types.Proposal, doc *types.Document, resolver *Resolver) Plan {
	if len(p.Ops) > 0 {
		return Plan{Ops: p.Ops}
	}
	if resolver == nil {
		resolver = NewResolver()
	}
	value := strings.TrimSpace(p.Value)

	switch p.Type {
	case types.ProposalAddSkill, types.ProposalAddKeyword:
		return planSkill(ctx, value, doc, resolver)

	case types.ProposalAlignExperience, types.ProposalRoleEnhancement:
		if len(doc.Work) == 0 {
			return Plan{Err: ErrNoWorkEntries}
		}
		last := len(doc.Work) - 1
		for _, h := range doc.Work[last].Highlights {
			if strings.EqualFold(strings.TrimSpace(h), value) {
				return Plan{Err: ErrAlreadyExists}
			}
		}
		if len(doc.Work[last].Highlights) == 0 {
			return Plan{Ops: []types.EditOp{{Op: types.OpAdd, Path: fmt.Sprintf("/work/%d/highlights", last), Value: []string{value}}}}
		}
		return Plan{Ops: []types.EditOp{{Op: types.OpAdd, Path: fmt.Sprintf("/work/%d/highlights/-", last), Value: value}}}

	case types.ProposalEnhanceExperience:
		if len(doc.Work) == 0 {
			return Plan{Err: ErrNoWorkEntries}
		}
		last := len(doc.Work) - 1
		summary := strings.TrimSpace(doc.Work[last].Summary)
		if summary == "" {
			return Plan{Ops: []types.EditOp{{Op: types.OpAdd, Path: fmt.Sprintf("/work/%d/summary", last), Value: value}}}
		}
		if strings.Contains(strings.ToLower(summary), strings.ToLower(value)) {
			return Plan{Err: ErrAlreadyExists}
		}
		joined := strings.TrimRight(summary, ". ") + ". " + value
		return Plan{Ops: []types.EditOp{{Op: types.OpReplace, Path: fmt.Sprintf("/work/%d/summary", last), Value: joined}}}

	case types.ProposalEnhanceSection, types.ProposalAddContent, types.ProposalRecommendationBased:
		return Plan{NoMapping: true}

	default:
		return Plan{Err: fmt.Errorf("%w: %s", ErrUnsupportedType, p.Type)}
	}
}

func planSkill(ctx context.Context, keyword string, doc *types.Document, resolver *Resolver) Plan {
	if doc.HasKeyword(keyword) {
		return Plan{Err: ErrAlreadyExists}
	}
	if len(doc.SkillGroups) == 0 {
		group := types.SkillGroup{Name: defaultGroupName, Keywords: []string{keyword}}
		res := Resolution{Index: 0, Method: ResolvedEmpty}
		return Plan{Ops: []types.EditOp{{Op: types.OpAdd, Path: "/skills/-", Value: group}}, Resolution: &res}
	}

	res := resolver.Resolve(ctx, doc.SkillGroups, keyword)
	return Plan{
		Ops:        []types.EditOp{{Op: types.OpAdd, Path: fmt.Sprintf("/skills/%d/keywords/-", res.Index), Value: keyword}},
		Resolution: &res,
	}
}
