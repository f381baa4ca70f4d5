package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// MinContentLength is the minimum extracted text length to consider HTTP fetch successful.
// Shorter text usually means the page renders its content with JavaScript.
const MinContentLength = 500

// ShouldUseBrowser reports whether extracted text is too short to trust.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// PageRenderer returns the HTML of a page after its scripts have run.
type PageRenderer interface {
	RenderPage(ctx context.Context, url string) (string, error)
}

// ChromeRenderer renders pages in headless Chrome. Chrome or Chromium must be
// installed.
type ChromeRenderer struct {
	Timeout time.Duration
	Settle  time.Duration
	Logger  logrus.FieldLogger
}

// NewChromeRenderer returns a renderer with default timings.
func NewChromeRenderer(logger logrus.FieldLogger) *ChromeRenderer {
	return &ChromeRenderer{Timeout: 30 * time.Second, Settle: 3 * time.Second, Logger: logger}
}

// ExecAllocatorOptions are the Chrome flags used for headless rendering.
func ExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
}

// RenderPage navigates to url, waits for the body and returns the page HTML.
func (r *ChromeRenderer) RenderPage(ctx context.Context, url string) (string, error) {
	log := r.logger().WithField("url", url)
	log.Debug("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, ExecAllocatorOptions()...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout())
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	log.WithField("bytes", len(html)).Debug("rendered page")
	return html, nil
}

func (r *ChromeRenderer) timeout() time.Duration {
	if r.Timeout <= 0 {
		return 30 * time.Second
	}
	return r.Timeout
}

func (r *ChromeRenderer) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

var _ PageRenderer = (*ChromeRenderer)(nil)

