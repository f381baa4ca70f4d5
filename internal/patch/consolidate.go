package patch

import (
	"slices"
	"sort"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// DefaultMaxSkillGroups bounds the number of skill groups after a batch.
const DefaultMaxSkillGroups = 4

// nameBonus is added to the keyword overlap when one group name contains the other.
const nameBonus = 0.2

// Consolidate reduces groups to at most limit entries without losing keywords.
// When there are too many groups, the limit-1 largest are kept (at least one)
// and every other group is merged into the kept group it overlaps most.
// Kept groups stay in their original relative order.
func Consolidate(groups []types.SkillGroup, limit int) []types.SkillGroup {
	if limit < 1 {
		limit = 1
	}
	if len(groups) <= limit {
		return document.CloneGroups(groups)
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(groups[order[a]].Keywords) > len(groups[order[b]].Keywords)
	})

	keep := limit - 1
	if keep < 1 {
		keep = 1
	}
	keptIdx := slices.Clone(order[:keep])
	slices.Sort(keptIdx)

	kept := make([]types.SkillGroup, len(keptIdx))
	snapshot := make([]types.SkillGroup, len(keptIdx))
	for i, gi := range keptIdx {
		kept[i] = types.SkillGroup{Name: groups[gi].Name, Keywords: slices.Clone(groups[gi].Keywords)}
		snapshot[i] = groups[gi]
	}

	for _, ri := range order[keep:] {
		src := groups[ri]
		target := mostSimilar(src, snapshot)
		for _, k := range src.Keywords {
			if !kept[target].Contains(k) {
				kept[target].Keywords = append(kept[target].Keywords, k)
			}
		}
	}
	return kept
}

func mostSimilar(src types.SkillGroup, candidates []types.SkillGroup) int {
	best, bestScore := 0, -1.0
	srcName := strings.ToLower(strings.TrimSpace(src.Name))
	for i, c := range candidates {
		score := jaccard(src.Keywords, c.Keywords)
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if srcName != "" && name != "" && (strings.Contains(name, srcName) || strings.Contains(srcName, name)) {
			score += nameBonus
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
