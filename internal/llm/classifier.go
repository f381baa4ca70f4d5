package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/jonathan/resume-optimizer/internal/patch"
	"github.com/jonathan/resume-optimizer/internal/prompts"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Classifier answers the optimizer's LLM questions: job keyword extraction,
// skill category assignment and proposal ranking. Every call is capped by the
// configured timeout and paced by a shared rate limiter.
type Classifier struct {
	client  Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

// NewClassifier wraps client. A nil config uses DefaultConfig.
func NewClassifier(client Client, config *Config, logger logrus.FieldLogger) *Classifier {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Classifier{
		client:  client,
		timeout: config.callTimeout(),
		logger:  logger.WithField("component", "llm"),
	}
	if config.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60), 1)
	}
	return c
}

// ExtractKeywords asks the model for the hiring keywords of a job description.
func (c *Classifier) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	const op = "keyword extraction"
	prompt, err := prompts.Render(prompts.AnalysisFile, "keyword_extraction", map[string]string{"Text": text})
	if err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, op, prompt, TierLite)
	if err != nil {
		return nil, err
	}

	keywords, err := decodeStrings(raw)
	if err != nil {
		return nil, &InvalidResponseError{Operation: op, Response: raw, Message: "expected a JSON array of strings", Cause: err}
	}
	return dedupeStrings(keywords), nil
}

// ClassifyCategory picks the index of the group keyword belongs in.
// It returns -1 when the model says no group fits.
func (c *Classifier) ClassifyCategory(ctx context.Context, keyword string, groups []patch.CategoryHint) (int, error) {
	const op = "category assignment"
	if len(groups) == 0 {
		return -1, nil
	}

	var sb strings.Builder
	for i, g := range groups {
		fmt.Fprintf(&sb, "%d: %s (%s)\n", i, g.Name, strings.Join(g.Keywords, ", "))
	}
	prompt, err := prompts.Render(prompts.PatchingFile, "category_assignment", map[string]string{
		"Keyword":    keyword,
		"Categories": strings.TrimRight(sb.String(), "\n"),
	})
	if err != nil {
		return -1, err
	}

	raw, err := c.call(ctx, op, prompt, TierLite)
	if err != nil {
		return -1, err
	}

	index := gjson.Get(raw, "index")
	if !index.Exists() || index.Type != gjson.Number {
		return -1, &InvalidResponseError{Operation: op, Response: raw, Message: "missing numeric index"}
	}
	n := int(index.Int())
	if n < -1 || n >= len(groups) {
		return -1, &InvalidResponseError{Operation: op, Response: raw, Message: fmt.Sprintf("index %d out of range", n)}
	}
	return n, nil
}

// RankProposals returns proposal IDs ordered best first. IDs the model omits
// keep their relative order after the ranked ones; unknown IDs are dropped.
func (c *Classifier) RankProposals(ctx context.Context, keywords []string, proposals []types.Proposal) ([]string, error) {
	const op = "proposal ranking"
	if len(proposals) == 0 {
		return nil, nil
	}

	lines := make([]string, len(proposals))
	for i, p := range proposals {
		lines[i] = fmt.Sprintf("%s | %s | %s", p.ID, p.Type, p.Value)
	}
	prompt, err := prompts.Render(prompts.AnalysisFile, "proposal_ranking", map[string]string{
		"Keywords":  strings.Join(keywords, ", "),
		"Proposals": strings.Join(lines, "\n"),
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, op, prompt, TierStandard)
	if err != nil {
		return nil, err
	}

	ranked, err := decodeStrings(raw)
	if err != nil {
		return nil, &InvalidResponseError{Operation: op, Response: raw, Message: "expected a JSON array of IDs", Cause: err}
	}
	return completeRanking(ranked, proposals), nil
}

func (c *Classifier) call(ctx context.Context, op, prompt string, tier ModelTier) (string, error) {
	if c.client == nil {
		return "", ErrMissingCredentials
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return "", c.wrap(callCtx, op, err)
		}
	}

	start := time.Now()
	raw, err := c.client.GenerateJSON(callCtx, prompt, tier)
	if err != nil {
		return "", c.wrap(callCtx, op, err)
	}
	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"tier":      tier,
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Debug("llm call completed")
	return CleanJSONBlock(raw), nil
}

func (c *Classifier) wrap(callCtx context.Context, op string, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.WithField("operation", op).Warn("llm call timed out")
		return &TimeoutError{Operation: op, Timeout: c.timeout, Cause: err}
	}
	return &CallError{Operation: op, Cause: err}
}

// decodeStrings accepts either a bare array or an object with a single array field.
func decodeStrings(raw string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(ExtractJSONArray(raw)), &out); err == nil {
		return out, nil
	}

	parsed := gjson.Parse(raw)
	if parsed.IsObject() {
		var found []string
		var ok bool
		parsed.ForEach(func(_, value gjson.Result) bool {
			if !value.IsArray() {
				return true
			}
			for _, item := range value.Array() {
				found = append(found, item.String())
			}
			ok = true
			return false
		})
		if ok {
			return found, nil
		}
	}
	return nil, fmt.Errorf("no string array in %q", truncate(raw, 80))
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func completeRanking(ranked []string, proposals []types.Proposal) []string {
	known := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		known[p.ID] = true
	}

	placed := make(map[string]bool, len(proposals))
	out := make([]string, 0, len(proposals))
	for _, id := range ranked {
		if known[id] && !placed[id] {
			placed[id] = true
			out = append(out, id)
		}
	}
	for _, p := range proposals {
		if !placed[p.ID] {
			placed[p.ID] = true
			out = append(out, p.ID)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
