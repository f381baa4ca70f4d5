package workflow

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-optimizer/internal/patch"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultMaxSkillGroups = patch.DefaultMaxSkillGroups
	DefaultMaxRetries     = 2
	DefaultCallTimeout    = 10 * time.Second
)

// NoRetries disables the parse and fetch retry edges.
const NoRetries = -1

// Options control a single run.
type Options struct {
	// AutoApply approves every proposal without asking the decider.
	AutoApply bool
	// AllowDisk permits the export stage to write under OutputPath.
	AllowDisk  bool
	OutputPath string `validate:"required_if=AllowDisk true"`
	// MaxSkillGroups bounds the skill categories after consolidation.
	MaxSkillGroups int `validate:"gte=0,lte=20"`
	// MaxRetries bounds retries of parse and fetch_jd. NoRetries disables them.
	MaxRetries int `validate:"gte=-1,lte=10"`
	// CallTimeout caps each collaborator call. Values above the default are
	// reduced to it.
	CallTimeout time.Duration
	Theme       string `validate:"omitempty,oneof=classic modern compact"`
	RenderPDF   bool
	Weights     patch.Weights
}

var optionsValidator = validator.New()

// Validate checks o and returns a *ValidationError.
func (o Options) Validate() error {
	if o.CallTimeout < 0 {
		return &ValidationError{Field: "CallTimeout", Message: "must not be negative"}
	}
	if err := optionsValidator.Struct(o); err != nil {
		var field string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			field = fieldErrs[0].Field()
		}
		return &ValidationError{Field: field, Message: "failed validation", Cause: err}
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.MaxSkillGroups == 0 {
		o.MaxSkillGroups = DefaultMaxSkillGroups
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.CallTimeout <= 0 || o.CallTimeout > DefaultCallTimeout {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Weights.IsZero() {
		o.Weights = patch.DefaultWeights()
	}
	return o
}
