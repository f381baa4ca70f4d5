package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// KeywordExtractor pulls hiring keywords out of free text.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

// Analyze extracts job and resume keywords concurrently and reports the gap
// between them. Extractor failures fall back to HeuristicKeywords and are
// listed in HeuristicReasons; only context cancellation fails the analysis.
func Analyze(ctx context.Context, doc *types.Document, jobText string, extractor KeywordExtractor) (*types.GapAnalysis, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, fmt.Errorf("job description is empty")
	}
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	resumeText := fullText(doc)

	var (
		jobKeywords, resumeKeywords []string
		jobReason, resumeReason     string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jobKeywords, jobReason = extract(gCtx, extractor, jobText, "job description")
		return gCtx.Err()
	})
	g.Go(func() error {
		resumeKeywords = structuredKeywords(doc)
		if len(resumeKeywords) == 0 {
			resumeKeywords, resumeReason = extract(gCtx, extractor, resumeText, "resume")
		}
		return gCtx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gap := &types.GapAnalysis{
		JobKeywords:    jobKeywords,
		ResumeKeywords: resumeKeywords,
		Matched:        []string{},
		Missing:        []string{},
	}
	for _, reason := range []string{jobReason, resumeReason} {
		if reason != "" {
			gap.UsedHeuristics = true
			gap.HeuristicReasons = append(gap.HeuristicReasons, reason)
		}
	}

	have := make(map[string]bool, len(resumeKeywords))
	for _, k := range resumeKeywords {
		have[strings.ToLower(k)] = true
	}
	lowerText := strings.ToLower(resumeText)
	for _, k := range jobKeywords {
		if have[strings.ToLower(k)] || containsTerm(lowerText, k) {
			gap.Matched = append(gap.Matched, k)
		} else {
			gap.Missing = append(gap.Missing, k)
		}
	}

	gap.Coverage = 1
	if len(jobKeywords) > 0 {
		gap.Coverage = float64(len(gap.Matched)) / float64(len(jobKeywords))
	}
	return gap, nil
}

// extract runs the extractor and falls back to the tokenizer, returning the
// reason for the fallback when one was needed.
func extract(ctx context.Context, extractor KeywordExtractor, text, label string) ([]string, string) {
	if extractor == nil {
		return HeuristicKeywords(text), fmt.Sprintf("%s: no keyword extractor configured", label)
	}

	keywords, err := extractor.ExtractKeywords(ctx, text)
	if err != nil {
		return HeuristicKeywords(text), fmt.Sprintf("%s: %v", label, err)
	}
	keywords = NormalizeKeywords(keywords)
	if len(keywords) == 0 {
		return HeuristicKeywords(text), fmt.Sprintf("%s: extractor returned no keywords", label)
	}
	return keywords, ""
}

// structuredKeywords lists skill and project keywords of a structured document.
func structuredKeywords(doc *types.Document) []string {
	keywords := doc.AllKeywords()
	for _, p := range doc.Projects {
		keywords = append(keywords, p.Keywords...)
	}
	return NormalizeKeywords(keywords)
}

func fullText(doc *types.Document) string {
	sections := document.TextView(doc)
	parts := make([]string, 0, len(types.SectionNames))
	for _, name := range types.SectionNames {
		if text, _ := sections.Get(name); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
