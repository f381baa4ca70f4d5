package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-optimizer/internal/types"
)

func skill(value string) types.Proposal {
	return types.NewProposal(types.ProposalAddSkill, types.PriorityHigh, value, types.ActionAdd, 0.8)
}

func values(proposals []types.Proposal) []string {
	out := make([]string, len(proposals))
	for i, p := range proposals {
		out[i] = p.Value
	}
	return out
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name  string
		input []types.Proposal
		want  []string
	}{
		{
			name:  "case and substring variants keep the first",
			input: []types.Proposal{skill("React"), skill("react"), skill("React.js")},
			want:  []string{"React"},
		},
		{
			name:  "distinct values survive",
			input: []types.Proposal{skill("Go"), skill("Python"), skill("Docker")},
			want:  []string{"Go", "Python", "Docker"},
		},
		{
			name: "add_skill and add_keyword with equal values",
			input: []types.Proposal{
				skill("Kubernetes"),
				types.NewProposal(types.ProposalAddKeyword, types.PriorityLow, "kubernetes", "", 0.5),
			},
			want: []string{"Kubernetes"},
		},
		{
			name: "overlap across types keeps the earliest",
			input: []types.Proposal{
				skill("Kubernetes"),
				types.NewProposal(types.ProposalAlignExperience, types.PriorityHigh, "Operated Kubernetes clusters", "", 0.5),
			},
			want: []string{"Kubernetes"},
		},
		{
			name: "longer value first absorbs a later skill",
			input: []types.Proposal{
				types.NewProposal(types.ProposalEnhanceExperience, types.PriorityMedium, "Built React dashboards", "", 0.5),
				skill("react"),
				skill("Vue"),
			},
			want: []string{"Built React dashboards", "Vue"},
		},
		{
			name: "equal values merge across types",
			input: []types.Proposal{
				skill("Terraform"),
				types.NewProposal(types.ProposalAddKeyword, types.PriorityLow, "terraform", "", 0.5),
				types.NewProposal(types.ProposalRecommendationBased, types.PriorityLow, "Terraform", "", 0.5),
			},
			want: []string{"Terraform"},
		},
		{
			name: "empty values never overlap",
			input: []types.Proposal{
				skill("Go"),
				{Type: types.ProposalAddContent, Priority: types.PriorityLow},
			},
			want: []string{"Go", ""},
		},
		{
			name:  "empty input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, values(Deduplicate(tt.input)))
		})
	}
}

func TestDeduplicate_IsDeterministic(t *testing.T) {
	input := []types.Proposal{skill("Go"), skill("golang"), skill("Go"), skill("Rust"), skill("rust")}

	first := Deduplicate(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Deduplicate(input))
	}
	assert.Equal(t, []string{"Go", "Rust"}, values(first))
}
