// Package app assembles the workflow collaborators from a loaded configuration.
// Both the CLI and the HTTP server build their runners here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/analysis"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/export"
	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/workflow"
)

// Components holds a configured runner and the resources behind it.
// Runner is a template: callers copy it and set Decider, Inspect and
// OnProgress per run.
type Components struct {
	Runner     workflow.Runner
	Classifier *llm.Classifier
	DB         *db.DB

	closers []func()
}

// Close releases the LLM client and the database pool.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build wires collaborators for cfg. Optional services that fail to start
// (LLM client, database) are logged and left out, the same way the run would
// behave without them configured. A proposals file that cannot be loaded is
// an error.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Components{}
	c.Runner = workflow.Runner{
		Parser:   &document.Parser{Extractor: extract.PDFExtractor{}},
		Fetcher:  newFetcher(cfg, logger),
		Exporter: newExporter(cfg, logger),
		Logger:   logger,
	}

	classifier, closeClient := newClassifier(ctx, cfg, logger)
	if classifier != nil {
		c.Classifier = classifier
		c.closers = append(c.closers, closeClient)
		c.Runner.Extractor = classifier
		c.Runner.Classifier = classifier
	}

	generator, err := newGenerator(cfg, classifier, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Runner.Generator = generator

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Warn("audit database unavailable, runs will not be persisted")
		} else {
			c.DB = database
			c.closers = append(c.closers, database.Close)
			c.Runner.Audit = database
		}
	}

	return c, nil
}

// newClassifier returns nil when no API key is configured or the client
// cannot be created. The run then uses heuristics.
func newClassifier(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*llm.Classifier, func()) {
	if cfg.APIKey == "" {
		logger.Debug("no API key configured, using heuristic keywords and categories")
		return nil, nil
	}

	llmCfg := llm.DefaultConfig()
	if cfg.CallTimeoutSeconds > 0 {
		llmCfg = llmCfg.WithCallTimeout(time.Duration(cfg.CallTimeoutSeconds) * time.Second)
	}

	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		logger.WithError(err).Warn("LLM client unavailable, using heuristics")
		return nil, nil
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Debug("closing LLM client")
		}
	}
	return llm.NewClassifier(client, llmCfg, logger), closeClient
}

func newFetcher(cfg *config.Config, logger logrus.FieldLogger) *fetch.JobFetcher {
	f := &fetch.JobFetcher{Logger: logger}
	if cfg.UseBrowser {
		f.Browser = fetch.NewChromeRenderer(logger)
	}
	return f
}

func newExporter(cfg *config.Config, logger logrus.FieldLogger) *export.Exporter {
	e := &export.Exporter{Logger: logger}
	if cfg.RenderPDF {
		e.PDF = &rendering.DocumentRenderer{Printer: &rendering.ChromePrinter{}}
	}
	return e
}

// newGenerator serves the proposals file when one is configured, otherwise
// derives proposals from the gap analysis.
func newGenerator(cfg *config.Config, classifier *llm.Classifier, logger logrus.FieldLogger) (analysis.Generator, error) {
	if cfg.Proposals != "" {
		proposals, err := analysis.LoadProposals(cfg.Proposals)
		if err != nil {
			return nil, fmt.Errorf("failed to load proposals: %w", err)
		}
		logger.WithField("count", len(proposals)).Debug("using proposals file")
		return analysis.StaticGenerator{Proposals: proposals}, nil
	}

	g := &analysis.HeuristicGenerator{Logger: logger}
	if classifier != nil {
		g.Ranker = classifier
	}
	return g, nil
}

// NewRunner returns a copy of the template runner for one run.
func (c *Components) NewRunner() *workflow.Runner {
	r := c.Runner
	return &r
}
