package patch

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/types"
)

func sixGroups() []types.SkillGroup {
	return []types.SkillGroup{
		{Name: "Languages", Keywords: []string{"Go", "Python", "Java", "Rust"}},
		{Name: "Cloud", Keywords: []string{"AWS", "GCP", "Docker"}},
		{Name: "Frontend", Keywords: []string{"React", "Vue"}},
		{Name: "Databases", Keywords: []string{"Postgres", "Redis"}},
		{Name: "Cloud Tools", Keywords: []string{"Terraform"}},
		{Name: "Scripting", Keywords: []string{"Bash"}},
	}
}

func keywordMultiset(groups []types.SkillGroup) []string {
	var all []string
	for _, g := range groups {
		for _, k := range g.Keywords {
			all = append(all, strings.ToLower(k))
		}
	}
	sort.Strings(all)
	return all
}

func TestConsolidate_MergesIntoMostSimilar(t *testing.T) {
	groups := sixGroups()
	out := Consolidate(groups, 4)

	require.Len(t, out, 3)
	assert.Equal(t, types.SkillGroup{Name: "Languages", Keywords: []string{"Go", "Python", "Java", "Rust", "Postgres", "Redis", "Bash"}}, out[0])
	assert.Equal(t, types.SkillGroup{Name: "Cloud", Keywords: []string{"AWS", "GCP", "Docker", "Terraform"}}, out[1])
	assert.Equal(t, types.SkillGroup{Name: "Frontend", Keywords: []string{"React", "Vue"}}, out[2])
	assert.Equal(t, sixGroups(), groups, "input must not change")
}

func TestConsolidate_PreservesKeywordMultiset(t *testing.T) {
	for max := 1; max <= 7; max++ {
		out := Consolidate(sixGroups(), max)
		assert.LessOrEqual(t, len(out), max)
		assert.Equal(t, keywordMultiset(sixGroups()), keywordMultiset(out), "max=%d", max)
	}
}

func TestConsolidate_IsDeterministic(t *testing.T) {
	first := Consolidate(sixGroups(), 3)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Consolidate(sixGroups(), 3))
	}
}

func TestConsolidate_UnderBoundIsCopy(t *testing.T) {
	groups := sixGroups()[:2]
	out := Consolidate(groups, 4)
	assert.Equal(t, groups, out)

	out[0].Keywords[0] = "changed"
	assert.Equal(t, "Go", groups[0].Keywords[0])
}

func TestConsolidate_JaccardChoosesOverlap(t *testing.T) {
	groups := []types.SkillGroup{
		{Name: "X", Keywords: []string{"a", "b"}},
		{Name: "Y", Keywords: []string{"c", "d"}},
		{Name: "Z", Keywords: []string{"c"}},
		{Name: "W", Keywords: []string{"e"}},
	}

	out := Consolidate(groups, 3)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"a", "b", "e"}, out[0].Keywords)
	assert.Equal(t, []string{"c", "d"}, out[1].Keywords)
}

func TestConsolidate_KeepsOriginalOrderOfKeptGroups(t *testing.T) {
	groups := []types.SkillGroup{
		{Name: "Small", Keywords: []string{"x"}},
		{Name: "Big", Keywords: []string{"a", "b", "c"}},
		{Name: "Medium", Keywords: []string{"d", "e"}},
	}

	out := Consolidate(groups, 2)
	require.Len(t, out, 1)
	assert.Equal(t, "Big", out[0].Name)

	out = Consolidate(append(groups, types.SkillGroup{Name: "Tiny", Keywords: []string{"y"}}), 3)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"Big", "Medium"}, []string{out[0].Name, out[1].Name})
}
