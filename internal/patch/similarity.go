package patch

import (
	"strings"
	"unicode"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Weights configures the category scoring used when no exact or advisory
// match places a keyword.
type Weights struct {
	Exact       float64 `json:"exact"`
	Substring   float64 `json:"substring"`
	SharedToken float64 `json:"shared_token"`
	NameToken   float64 `json:"name_token"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{Exact: 100, Substring: 50, SharedToken: 10, NameToken: 25}
}

// IsZero reports whether no weight was configured.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

func (w Weights) orDefault() Weights {
	if w.IsZero() {
		return DefaultWeights()
	}
	return w
}

// Score rates how well keyword fits group.
func (w Weights) Score(keyword string, group types.SkillGroup) float64 {
	w = w.orDefault()
	kw := strings.ToLower(strings.TrimSpace(keyword))
	kwTokens := Tokens(kw)

	var score float64
	exact, substring := false, false
	memberTokens := make(map[string]bool)
	for _, m := range group.Keywords {
		member := strings.ToLower(strings.TrimSpace(m))
		if member == kw {
			exact = true
		} else if member != "" && kw != "" && (strings.Contains(member, kw) || strings.Contains(kw, member)) {
			substring = true
		}
		for _, t := range Tokens(member) {
			memberTokens[t] = true
		}
	}
	if exact {
		score += w.Exact
	}
	if substring {
		score += w.Substring
	}

	nameTokens := make(map[string]bool)
	for _, t := range Tokens(group.Name) {
		nameTokens[t] = true
	}
	nameHit := false
	for _, t := range kwTokens {
		if memberTokens[t] {
			score += w.SharedToken
		}
		if nameTokens[t] {
			nameHit = true
		}
	}
	if nameHit {
		score += w.NameToken
	}
	return score
}

// BestGroup returns the highest scoring group index. Ties go to the earlier
// group and an empty list yields 0.
func (w Weights) BestGroup(keyword string, groups []types.SkillGroup) int {
	best, bestScore := 0, -1.0
	for i, g := range groups {
		if s := w.Score(keyword, g); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// Tokens splits s into lowercase alphanumeric tokens, deduplicated in order.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// jaccard computes |a∩b| / |a∪b| over case-insensitive keyword sets.
func jaccard(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	return float64(inter) / float64(len(setA)+len(setB)-inter)
}

func lowerSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = true
		}
	}
	return out
}
