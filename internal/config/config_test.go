package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"resume": "resume.json",
		"job_url": "https://example.com/job",
		"max_skill_groups": 5,
		"call_timeout_seconds": 3,
		"auto_apply": true,
		"verbose": true
	}`

	cfg, err := LoadConfig(writeFile(t, "config.json", content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "resume.json", cfg.Resume)
	assert.Equal(t, "https://example.com/job", cfg.JobURL)
	assert.Equal(t, 5, cfg.MaxSkillGroups)
	assert.Equal(t, 3, cfg.CallTimeoutSeconds)
	assert.True(t, cfg.AutoApply)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.json", `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.json", `{"max_bullets": 20}`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	existing := writeFile(t, "resume.json", `{}`)

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, ""},
		{"existing resume", Config{Resume: existing}, ""},
		{"job and url", Config{Job: "job.txt", JobURL: "https://example.com/job"}, "mutually exclusive"},
		{"negative groups", Config{MaxSkillGroups: -1}, "max_skill_groups"},
		{"negative retries", Config{MaxRetries: -1}, "max_retries"},
		{"negative timeout", Config{CallTimeoutSeconds: -1}, "call_timeout_seconds"},
		{"disk without output", Config{AllowDisk: true}, "requires 'output'"},
		{"missing resume", Config{Resume: "/nonexistent/resume.json"}, "resume file not found"},
		{"missing proposals", Config{Proposals: "/nonexistent/p.json"}, "proposals file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{Resume: "flag.json", MaxRetries: 1}
	defaults := Config{
		Resume:         "file.json",
		JobURL:         "https://example.com/job",
		Theme:          "modern",
		MaxSkillGroups: 6,
		MaxRetries:     2,
		AutoApply:      true,
	}

	merged := cfg.MergeWithDefaults(defaults)
	assert.Equal(t, "flag.json", merged.Resume)
	assert.Equal(t, "https://example.com/job", merged.JobURL)
	assert.Equal(t, "modern", merged.Theme)
	assert.Equal(t, 6, merged.MaxSkillGroups)
	assert.Equal(t, 1, merged.MaxRetries)
	assert.True(t, merged.AutoApply)

	// A job given on the command line wins over either default job source.
	cfg = &Config{Job: "job.txt"}
	merged = cfg.MergeWithDefaults(defaults)
	assert.Equal(t, "job.txt", merged.Job)
	assert.Empty(t, merged.JobURL)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvDatabaseURL, "postgres://env")

	cfg := &Config{APIKey: "file-key"}
	cfg.ApplyEnv()
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
}

func TestWorkflowOptions(t *testing.T) {
	cfg := &Config{
		Output:             "out",
		AllowDisk:          true,
		AutoApply:          true,
		MaxSkillGroups:     3,
		CallTimeoutSeconds: 4,
		Theme:              "compact",
	}

	opts := cfg.WorkflowOptions()
	assert.True(t, opts.AllowDisk)
	assert.Equal(t, "out", opts.OutputPath)
	assert.Equal(t, 3, opts.MaxSkillGroups)
	assert.Equal(t, 4*time.Second, opts.CallTimeout)
	assert.Equal(t, "compact", opts.Theme)
	assert.NoError(t, opts.Validate())
}

func TestSources(t *testing.T) {
	cfg := &Config{Resume: "r.json", Job: "job.txt"}
	assert.Equal(t, types.InputSource{Path: "r.json"}, cfg.ResumeSource())
	assert.Equal(t, types.InputSource{Path: "job.txt"}, cfg.JobSource())

	cfg.JobURL = "https://example.com/job"
	assert.Equal(t, types.InputSource{URL: "https://example.com/job"}, cfg.JobSource())
}
