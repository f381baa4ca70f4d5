package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// getBinaryPath returns the path to the resume_optimizer binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "resume_optimizer"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/resume_optimizer ./cmd/resume_optimizer'", binaryPath)
	}

	return binaryPath
}

// testCommand returns a command with captured output for calling RunE
// functions directly.
func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	return cmd, &stdout, &stderr
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

const testResume = `{
  "basics": {"name": "Ada Lovelace"},
  "work": [{"name": "Acme", "position": "Engineer", "highlights": ["Built APIs"]}],
  "skills": [{"name": "Core", "keywords": ["Python", "Docker"]}]
}`

const testProposals = `{"proposals":[
  {"type":"add_skill","priority":"high","value":"Python","confidence":0.9},
  {"type":"add_skill","priority":"medium","value":"React","confidence":0.8}
]}`
