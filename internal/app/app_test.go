package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/approval"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/export"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBuild_HeuristicDefaults(t *testing.T) {
	c, err := Build(context.Background(), &config.Config{}, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Classifier)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Runner.Extractor)
	assert.Nil(t, c.Runner.Classifier)
	assert.Nil(t, c.Runner.Audit)
	assert.NotNil(t, c.Runner.Parser)

	gen, ok := c.Runner.Generator.(*analysis.HeuristicGenerator)
	require.True(t, ok, "expected heuristic generator, got %T", c.Runner.Generator)
	assert.Nil(t, gen.Ranker)

	fetcher, ok := c.Runner.Fetcher.(*fetch.JobFetcher)
	require.True(t, ok)
	assert.Nil(t, fetcher.Browser)

	exporter, ok := c.Runner.Exporter.(*export.Exporter)
	require.True(t, ok)
	assert.Nil(t, exporter.PDF)
}

func TestBuild_OptionalRenderers(t *testing.T) {
	cfg := &config.Config{UseBrowser: true, RenderPDF: true}
	c, err := Build(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	fetcher := c.Runner.Fetcher.(*fetch.JobFetcher)
	assert.NotNil(t, fetcher.Browser)
	exporter := c.Runner.Exporter.(*export.Exporter)
	assert.NotNil(t, exporter.PDF)
}

func TestBuild_ProposalsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	content := `{"proposals":[{"type":"add_skill","priority":"high","value":"React","confidence":0.9}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Build(context.Background(), &config.Config{Proposals: path}, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	gen, ok := c.Runner.Generator.(analysis.StaticGenerator)
	require.True(t, ok, "expected static generator, got %T", c.Runner.Generator)
	require.Len(t, gen.Proposals, 1)
	assert.Equal(t, "React", gen.Proposals[0].Value)
}

func TestBuild_BadProposalsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"proposals":[{"type":"rewrite"}]}`), 0644))

	_, err := Build(context.Background(), &config.Config{Proposals: path}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load proposals")
}

func TestBuild_NilConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestNewRunner_CopiesTemplate(t *testing.T) {
	c, err := Build(context.Background(), &config.Config{}, quietLogger())
	require.NoError(t, err)

	r := c.NewRunner()
	r.Decider = approval.AutoDecider{}
	r.Inspect = func(types.Proposal) {}
	assert.Nil(t, c.Runner.Decider)
	assert.Nil(t, c.Runner.Inspect)
}
