package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProposalType is the closed set of edit kinds a proposal can carry.
type ProposalType string

// Proposal types
const (
	ProposalAddSkill            ProposalType = "add_skill"
	ProposalAddKeyword          ProposalType = "add_keyword"
	ProposalEnhanceSection      ProposalType = "enhance_section"
	ProposalEnhanceExperience   ProposalType = "enhance_experience"
	ProposalAlignExperience     ProposalType = "align_experience"
	ProposalRoleEnhancement     ProposalType = "role_enhancement"
	ProposalAddContent          ProposalType = "add_content"
	ProposalRecommendationBased ProposalType = "recommendation_based"
)

// ProposalTypes lists every proposal type in declaration order.
var ProposalTypes = []ProposalType{
	ProposalAddSkill,
	ProposalAddKeyword,
	ProposalEnhanceSection,
	ProposalEnhanceExperience,
	ProposalAlignExperience,
	ProposalRoleEnhancement,
	ProposalAddContent,
	ProposalRecommendationBased,
}

// ParseProposalType normalizes spellings such as "add-skill" or "Add Skill".
func ParseProposalType(s string) (ProposalType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, t := range ProposalTypes {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown proposal type %q", s)
}

// Valid reports whether t is one of the known proposal types.
func (t ProposalType) Valid() bool {
	_, err := ParseProposalType(string(t))
	return err == nil
}

// IsSkill reports whether t edits the skill groups.
func (t ProposalType) IsSkill() bool {
	return t == ProposalAddSkill || t == ProposalAddKeyword
}

// UnmarshalJSON accepts any spelling ParseProposalType accepts.
func (t *ProposalType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseProposalType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Priority orders proposal application.
type Priority string

// Priorities
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns 0 for high, 1 for medium and 2 for low. Unknown priorities sort last.
func (p Priority) Rank() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Action verbs with special handling.
const (
	ActionAdd       = "add"
	ActionEmphasize = "emphasize"
)

// EditOp is a path-addressed structural edit. Paths use JSON Pointer syntax,
// with "-" as the final token meaning "append to array".
type EditOp struct {
	Op    string `json:"op" validate:"required,oneof=add replace"`
	Path  string `json:"path" validate:"required,startswith=/"`
	Value any    `json:"value"`
}

// Edit operation kinds
const (
	OpAdd     = "add"
	OpReplace = "replace"
)

// Proposal is a single candidate edit. Proposals are immutable once generated;
// what happened to them is recorded in a PatchOutcome.
type Proposal struct {
	ID         string       `json:"id"`
	Type       ProposalType `json:"type" validate:"required,proposaltype"`
	Priority   Priority     `json:"priority" validate:"required,oneof=high medium low"`
	Value      string       `json:"value" validate:"required"`
	Action     string       `json:"action,omitempty"`
	Confidence float64      `json:"confidence" validate:"gte=0,lte=1"`
	Impact     string       `json:"impact,omitempty"`
	Section    string       `json:"section,omitempty" validate:"omitempty,oneof=basics experience education skills projects"`
	Ops        []EditOp     `json:"ops,omitempty" validate:"omitempty,dive"`
}

// ProposalID derives the stable identifier of a proposal from its type and value.
func ProposalID(t ProposalType, value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(value))))
	return fmt.Sprintf("%s-%s", t, hex.EncodeToString(sum[:])[:12])
}

// NewProposal builds a proposal with its derived ID.
func NewProposal(t ProposalType, priority Priority, value, action string, confidence float64) Proposal {
	return Proposal{
		ID:         ProposalID(t, value),
		Type:       t,
		Priority:   priority,
		Value:      value,
		Action:     action,
		Confidence: confidence,
	}
}

// WithID returns a copy of p whose ID is derived when missing.
func (p Proposal) WithID() Proposal {
	if p.ID == "" {
		p.ID = ProposalID(p.Type, p.Value)
	}
	return p
}

var proposalValidator = newProposalValidator()

func newProposalValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("proposaltype", func(fl validator.FieldLevel) bool {
		return ProposalType(fl.Field().String()).Valid()
	})
	return v
}

// Validate validates the Proposal using the validator.
func (p *Proposal) Validate() error {
	return proposalValidator.Struct(p)
}

// ProposalSet is the on-disk and over-the-wire shape of a batch of proposals.
type ProposalSet struct {
	Proposals []Proposal `json:"proposals" validate:"dive"`
}

// Validate validates every proposal in the set.
func (s *ProposalSet) Validate() error {
	return proposalValidator.Struct(s)
}

// OutcomeStatus is the terminal state of an approved proposal.
type OutcomeStatus string

// Outcome statuses
const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeFailed  OutcomeStatus = "failed"
)

// PatchMode records which patcher handled a proposal.
type PatchMode string

// Patch modes
const (
	ModeStructural PatchMode = "structural"
	ModeTextual    PatchMode = "textual"
)

// PatchOutcome records the result of applying one proposal.
type PatchOutcome struct {
	Proposal  Proposal      `json:"proposal"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Mode      PatchMode     `json:"mode,omitempty"`
	Ops       []EditOp      `json:"ops,omitempty"`
	Section   string        `json:"section,omitempty"`
	Added     string        `json:"added,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
