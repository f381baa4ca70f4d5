// Package llm provides centralized LLM configuration, the provider client and
// the classifier the optimizer consults for keywords, categories and ranking.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: keyword extraction, category assignment
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: proposal ranking
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Default limits for classifier calls
const (
	DefaultCallTimeout       = 10 * time.Second
	DefaultRequestsPerMinute = 60
)

// Config holds the model configuration for the application
type Config struct {
	Provider          Provider
	Models            map[ModelTier]string
	Temperature       float32
	CallTimeout       time.Duration
	RequestsPerMinute int
}

// DefaultConfig returns the Gemini configuration the classifier runs with.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		Temperature:       0.1,
		CallTimeout:       DefaultCallTimeout,
		RequestsPerMinute: DefaultRequestsPerMinute,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithCallTimeout returns a copy of c with a different per-call cap.
func (c *Config) WithCallTimeout(d time.Duration) *Config {
	newConfig := *c
	newConfig.CallTimeout = d
	return &newConfig
}

func (c *Config) callTimeout() time.Duration {
	if c.CallTimeout <= 0 || c.CallTimeout > DefaultCallTimeout {
		return DefaultCallTimeout
	}
	return c.CallTimeout
}
