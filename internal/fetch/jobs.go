package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// JobDescription is the text of a job posting and where it came from.
type JobDescription struct {
	Source      string
	Text        string
	Platform    Platform
	UsedBrowser bool
}

// JobFetcher resolves a job description source to plain text.
type JobFetcher struct {
	Options *Options
	// Browser renders JavaScript-heavy pages when HTTP text is too short.
	// Nil disables the fallback.
	Browser PageRenderer
	Logger  logrus.FieldLogger
}

// Fetch reads the job description from a file, URL or inline text. HTML is
// reduced to its main text. An empty result is an error.
func (f *JobFetcher) Fetch(ctx context.Context, src types.InputSource) (*JobDescription, error) {
	var (
		jd  *JobDescription
		err error
	)
	switch {
	case src.Inline != "":
		jd, err = fromText("(inline)", src.Inline)
	case src.Path != "":
		jd, err = f.fromFile(src.Path)
	case src.URL != "":
		jd, err = f.fromURL(ctx, src.URL)
	default:
		return nil, &Error{URL: src.String(), Message: "no job description source given"}
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(jd.Text) == "" {
		return nil, &Error{URL: jd.Source, Message: "no text extracted", Cause: ErrEmptyText}
	}
	return jd, nil
}

func (f *JobFetcher) fromFile(path string) (*JobDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{URL: path, Message: "failed to read file", Cause: err}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		text, err := ExtractMainText(string(data), JobPostingSelectors(), commonNoise...)
		if err != nil {
			return nil, &Error{URL: path, Message: "failed to extract text", Cause: err}
		}
		return &JobDescription{Source: path, Text: text, Platform: PlatformUnknown}, nil
	}
	return fromText(path, string(data))
}

func fromText(source, text string) (*JobDescription, error) {
	if IsHTML(text) {
		extracted, err := ExtractMainText(text, JobPostingSelectors(), commonNoise...)
		if err != nil {
			return nil, &Error{URL: source, Message: "failed to extract text", Cause: err}
		}
		text = extracted
	} else {
		text = cleanWhitespace(text)
	}
	return &JobDescription{Source: source, Text: text, Platform: PlatformUnknown}, nil
}

func (f *JobFetcher) fromURL(ctx context.Context, rawURL string) (*JobDescription, error) {
	platform := DetectPlatform(rawURL)
	log := f.logger().WithFields(logrus.Fields{"url": rawURL, "platform": platform})

	result, err := URL(ctx, rawURL, f.Options)
	if err != nil {
		return nil, err
	}

	text := result.HTML
	if IsHTML(text) || strings.Contains(result.ContentType, "html") {
		text, err = ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
		if err != nil {
			return nil, &Error{URL: rawURL, Message: "failed to extract text", Cause: err}
		}
	} else {
		text = cleanWhitespace(text)
	}

	jd := &JobDescription{Source: rawURL, Text: text, Platform: platform}
	if f.Browser == nil || !ShouldUseBrowser(text) {
		return jd, nil
	}

	log.WithField("chars", len(text)).Info("page text is short, retrying with headless browser")
	html, err := f.Browser.RenderPage(ctx, rawURL)
	if err != nil {
		log.WithError(err).Warn("browser fallback failed, keeping HTTP text")
		return jd, nil
	}
	rendered, err := ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil || len(rendered) <= len(text) {
		log.WithFields(logrus.Fields{"http_chars": len(text), "browser_chars": len(rendered)}).Debug("keeping HTTP text")
		return jd, nil
	}
	jd.Text = rendered
	jd.UsedBrowser = true
	return jd, nil
}

func (f *JobFetcher) logger() logrus.FieldLogger {
	if f.Logger == nil {
		return logrus.StandardLogger()
	}
	return f.Logger
}
