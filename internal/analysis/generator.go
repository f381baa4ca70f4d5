package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// DefaultMaxSkillProposals caps the add_skill proposals made from one gap.
const DefaultMaxSkillProposals = 8

// Generator produces candidate proposals for a document.
type Generator interface {
	Suggest(ctx context.Context, doc *types.Document, gap *types.GapAnalysis) ([]types.Proposal, error)
}

// Ranker orders proposals by expected benefit. Rankings are advisory.
type Ranker interface {
	RankProposals(ctx context.Context, keywords []string, proposals []types.Proposal) ([]string, error)
}

// HeuristicGenerator turns missing job keywords into proposals.
type HeuristicGenerator struct {
	MaxSkills int
	Ranker    Ranker
	Logger    logrus.FieldLogger
}

// Suggest returns one add_skill proposal per missing keyword (up to MaxSkills).
// When some job keywords already match, it adds an align_experience highlight
// for documents with work entries and, below half coverage, a summary
// recommendation.
func (g *HeuristicGenerator) Suggest(ctx context.Context, doc *types.Document, gap *types.GapAnalysis) ([]types.Proposal, error) {
	if gap == nil {
		return nil, errors.New("gap analysis is required")
	}
	if len(gap.Missing) == 0 {
		return nil, nil
	}

	limit := g.MaxSkills
	if limit <= 0 {
		limit = DefaultMaxSkillProposals
	}
	missing := gap.Missing
	if len(missing) > limit {
		missing = missing[:limit]
	}

	proposals := make([]types.Proposal, 0, len(missing)+2)
	for i, keyword := range missing {
		p := types.NewProposal(types.ProposalAddSkill, rankPriority(i, len(missing)), keyword, types.ActionAdd, confidence(i))
		p.Impact = fmt.Sprintf("adds job keyword %q to the skills section", keyword)
		proposals = append(proposals, p)
	}

	// Sentences cite matched keywords only. Naming a missing keyword would
	// make them overlap the add_skill proposals above and be deduplicated.
	top := gap.Matched
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 && doc != nil && len(doc.Work) > 0 {
		p := types.NewProposal(types.ProposalAlignExperience, types.PriorityMedium,
			"Delivered production work using "+joinList(top), types.ActionAdd, 0.6)
		p.Impact = "ties the job's matched keywords to recent experience"
		proposals = append(proposals, p)
	}
	if len(top) > 0 && gap.Coverage < 0.5 {
		p := types.NewProposal(types.ProposalRecommendationBased, types.PriorityLow,
			"Focus areas include "+joinList(top), types.ActionEmphasize, 0.4)
		p.Impact = "surfaces the job's matched requirements in the summary"
		p.Section = types.SectionBasics
		proposals = append(proposals, p)
	}

	return g.rank(ctx, gap.JobKeywords, proposals), nil
}

// rank reorders proposals by the ranker's advice. Ranker errors keep the
// original order.
func (g *HeuristicGenerator) rank(ctx context.Context, keywords []string, proposals []types.Proposal) []types.Proposal {
	if g.Ranker == nil || len(proposals) < 2 {
		return proposals
	}
	ids, err := g.Ranker.RankProposals(ctx, keywords, proposals)
	if err != nil {
		g.logger().WithError(err).Warn("proposal ranking failed, keeping heuristic order")
		return proposals
	}
	return ApplyRanking(proposals, ids)
}

func (g *HeuristicGenerator) logger() logrus.FieldLogger {
	if g.Logger == nil {
		return logrus.StandardLogger()
	}
	return g.Logger
}

// ApplyRanking orders proposals by ids. Proposals missing from ids follow in
// their original order.
func ApplyRanking(proposals []types.Proposal, ids []string) []types.Proposal {
	byID := make(map[string]int, len(proposals))
	for i, p := range proposals {
		byID[p.ID] = i
	}

	used := make([]bool, len(proposals))
	out := make([]types.Proposal, 0, len(proposals))
	for _, id := range ids {
		if i, ok := byID[id]; ok && !used[i] {
			used[i] = true
			out = append(out, proposals[i])
		}
	}
	for i, p := range proposals {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out
}

// StaticGenerator serves proposals computed elsewhere, such as a proposals file.
type StaticGenerator struct {
	Proposals []types.Proposal
}

// Suggest validates and returns the stored proposals with their IDs filled in.
func (s StaticGenerator) Suggest(context.Context, *types.Document, *types.GapAnalysis) ([]types.Proposal, error) {
	out := make([]types.Proposal, 0, len(s.Proposals))
	for i, p := range s.Proposals {
		p = p.WithID()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("proposal %d (%s): %w", i, p.Value, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func rankPriority(i, n int) types.Priority {
	switch {
	case 3*i < n:
		return types.PriorityHigh
	case 3*i < 2*n:
		return types.PriorityMedium
	}
	return types.PriorityLow
}

func confidence(i int) float64 {
	c := 0.9 - 0.05*float64(i)
	if c < 0.5 {
		return 0.5
	}
	return c
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
