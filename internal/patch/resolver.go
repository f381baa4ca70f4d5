package patch

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// classifierSample is the number of keywords per group shown to the classifier.
const classifierSample = 8

// DefaultClassifierTimeout caps a single advisory classifier call.
const DefaultClassifierTimeout = 10 * time.Second

// CategoryHint is the view of a skill group given to a classifier.
type CategoryHint struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// CategoryClassifier suggests which group a keyword belongs to.
// Its answer is advisory: out-of-range indexes and errors are ignored.
type CategoryClassifier interface {
	ClassifyCategory(ctx context.Context, keyword string, groups []CategoryHint) (int, error)
}

// Resolution method names
const (
	ResolvedEmpty      = "empty"
	ResolvedExact      = "exact"
	ResolvedName       = "name"
	ResolvedClassifier = "classifier"
	ResolvedScore      = "score"
)

// Resolution is the group chosen for a keyword and how it was chosen.
type Resolution struct {
	Index  int
	Method string
}

// Resolver picks the skill group a keyword should join.
type Resolver struct {
	Weights    Weights
	Classifier CategoryClassifier
	Timeout    time.Duration
}

// NewResolver returns a resolver with default weights and no classifier.
func NewResolver() *Resolver {
	return &Resolver{Weights: DefaultWeights(), Timeout: DefaultClassifierTimeout}
}

// Resolve returns the index of the group keyword belongs to. It never fails:
// with no groups it returns index 0, which the caller must create.
func (r *Resolver) Resolve(ctx context.Context, groups []types.SkillGroup, keyword string) Resolution {
	if len(groups) == 0 {
		return Resolution{Index: 0, Method: ResolvedEmpty}
	}
	kw := strings.TrimSpace(keyword)

	for i, g := range groups {
		if g.Contains(kw) {
			return Resolution{Index: i, Method: ResolvedExact}
		}
	}

	lower := strings.ToLower(kw)
	if lower != "" {
		for i, g := range groups {
			if strings.Contains(strings.ToLower(g.Name), lower) {
				return Resolution{Index: i, Method: ResolvedName}
			}
		}
	}

	if idx, ok := r.classify(ctx, groups, kw); ok {
		return Resolution{Index: idx, Method: ResolvedClassifier}
	}

	return Resolution{Index: r.Weights.BestGroup(kw, groups), Method: ResolvedScore}
}

func (r *Resolver) classify(ctx context.Context, groups []types.SkillGroup, keyword string) (int, bool) {
	if r.Classifier == nil {
		return 0, false
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hints := make([]CategoryHint, len(groups))
	for i, g := range groups {
		sample := g.Keywords
		if len(sample) > classifierSample {
			sample = sample[:classifierSample]
		}
		hints[i] = CategoryHint{Name: g.Name, Keywords: append([]string(nil), sample...)}
	}

	idx, err := r.Classifier.ClassifyCategory(callCtx, keyword, hints)
	if err != nil || idx < 0 || idx >= len(groups) {
		return 0, false
	}
	return idx, true
}
