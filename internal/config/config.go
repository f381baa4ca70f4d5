// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Inputs
	Resume    string `json:"resume,omitempty"`    // Path to resume JSON, text or PDF
	Proposals string `json:"proposals,omitempty"` // Path to a precomputed proposals file
	Job       string `json:"job,omitempty"`       // Path to job posting text or HTML file
	JobURL    string `json:"job_url,omitempty"`   // URL to fetch job posting from

	// Output
	Output    string `json:"output,omitempty"` // Directory for exported artifacts
	Theme     string `json:"theme,omitempty"`  // HTML theme
	AllowDisk bool   `json:"allow_disk,omitempty"`
	RenderPDF bool   `json:"render_pdf,omitempty"`

	// Limits
	MaxSkillGroups     int `json:"max_skill_groups,omitempty"`
	MaxRetries         int `json:"max_retries,omitempty"`
	CallTimeoutSeconds int `json:"call_timeout_seconds,omitempty"`

	// Behavior
	AutoApply   bool   `json:"auto_apply,omitempty"`   // Apply every proposal without prompting
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	UseBrowser  bool   `json:"use_browser,omitempty"`  // Use headless browser for SPA sites
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := schemas.ValidateConfig(data); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required inputs are checked by the commands after merging with flags.
func (c *Config) Validate() error {
	if c.Job != "" && c.JobURL != "" {
		return fmt.Errorf("config error: 'job' and 'job_url' are mutually exclusive")
	}

	if c.MaxSkillGroups < 0 {
		return fmt.Errorf("config error: 'max_skill_groups' must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.CallTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'call_timeout_seconds' must be non-negative")
	}
	if c.AllowDisk && c.Output == "" {
		return fmt.Errorf("config error: 'allow_disk' requires 'output'")
	}

	for name, path := range map[string]string{"resume": c.Resume, "job": c.Job, "proposals": c.Proposals} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: %s file not found: %s", name, path)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Resume == "" {
		result.Resume = defaults.Resume
	}
	if result.Proposals == "" {
		result.Proposals = defaults.Proposals
	}
	if result.Job == "" && result.JobURL == "" {
		result.Job = defaults.Job
		result.JobURL = defaults.JobURL
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.Theme == "" {
		result.Theme = defaults.Theme
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.MaxSkillGroups == 0 {
		result.MaxSkillGroups = defaults.MaxSkillGroups
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.CallTimeoutSeconds == 0 {
		result.CallTimeoutSeconds = defaults.CallTimeoutSeconds
	}

	// Bool fields: a true default turns the feature on
	result.AutoApply = result.AutoApply || defaults.AutoApply
	result.AllowDisk = result.AllowDisk || defaults.AllowDisk
	result.RenderPDF = result.RenderPDF || defaults.RenderPDF
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// ApplyEnv fills secrets that were not configured from the environment.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
}

// WorkflowOptions converts the configuration into run options.
func (c *Config) WorkflowOptions() workflow.Options {
	return workflow.Options{
		AutoApply:      c.AutoApply,
		AllowDisk:      c.AllowDisk,
		OutputPath:     c.Output,
		MaxSkillGroups: c.MaxSkillGroups,
		MaxRetries:     c.MaxRetries,
		CallTimeout:    time.Duration(c.CallTimeoutSeconds) * time.Second,
		Theme:          c.Theme,
		RenderPDF:      c.RenderPDF,
	}
}

// ResumeSource is the document input.
func (c *Config) ResumeSource() types.InputSource {
	return types.InputSource{Path: c.Resume}
}

// JobSource is the job description input.
func (c *Config) JobSource() types.InputSource {
	if c.JobURL != "" {
		return types.InputSource{URL: c.JobURL}
	}
	return types.InputSource{Path: c.Job}
}
