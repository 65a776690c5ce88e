package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/serpforge/serpforge/internal/fingerprint"
	"github.com/serpforge/serpforge/internal/logger"
)

// DefaultHTMLDir is where captured pages land when no output path is given.
const DefaultHTMLDir = "./google-search-html"

// HTMLOptions control page capture beyond the base request.
type HTMLOptions struct {
	// SaveToFile writes the sanitized markup to disk and, alongside it, a
	// full-page screenshot.
	SaveToFile bool
	// OutputPath overrides the generated path under DefaultHTMLDir.
	OutputPath string
}

// CaptureHTML performs the navigate/verify/query sequence and returns the
// results page's sanitized markup instead of extracted results. Unlike
// Search, failures propagate as errors; there is no degraded shape for
// markup.
func (e *Engine) CaptureHTML(ctx context.Context, req Request, opts HTMLOptions) (*HTMLResponse, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture request: %w", err)
	}

	logger.Info("capturing results page markup", "query", req.Query)

	store := fingerprint.NewStore(req.StateFile)
	storageState, state := store.Load()

	sess := e.session
	if sess == nil {
		var err error
		sess, err = e.browser.Launch(ctx, true, req.timeout())
		if err != nil {
			return nil, err
		}
		defer e.browser.CloseSafely(sess)
	}

	page, err := e.browser.NewPage(sess, state, storageState, req.Locale)
	if err != nil {
		return nil, err
	}
	defer e.browser.ClosePage(page)

	domain := fingerprint.ChooseDomain(state)
	if err := e.navigate(page, domain, req.timeout()); err != nil {
		return nil, fmt.Errorf("capture markup: %w", err)
	}

	// No headful escalation here: capture runs headless only, so a block
	// either clears on its own within the budget or fails the capture.
	if err := e.checkBlock(ctx, req, page, sess, store, state, true, "capture landing"); err != nil {
		return nil, fmt.Errorf("capture markup: %w", err)
	}

	if err := e.executor.ExecuteSearch(page, req.Query); err != nil {
		return nil, fmt.Errorf("capture markup: %w", err)
	}
	if err := e.executor.WaitForResults(page); err != nil {
		return nil, fmt.Errorf("capture markup: %w", err)
	}

	var raw, finalURL string
	err = chromedp.Run(page.Ctx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &raw, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}

	sanitized, err := SanitizeHTML(raw)
	if err != nil {
		return nil, fmt.Errorf("sanitize page markup: %w", err)
	}

	resp := &HTMLResponse{
		Query:              req.Query,
		HTML:               sanitized,
		URL:                finalURL,
		OriginalHTMLLength: len(raw),
	}

	if opts.SaveToFile {
		htmlPath := opts.OutputPath
		if htmlPath == "" {
			htmlPath = filepath.Join(DefaultHTMLDir, captureFilename(req.Query, time.Now()))
		}
		if dir := filepath.Dir(htmlPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create output directory: %w", err)
			}
		}
		if err := os.WriteFile(htmlPath, []byte(sanitized), 0o644); err != nil {
			return nil, fmt.Errorf("write markup file: %w", err)
		}
		resp.SavedPath = htmlPath
		logger.Info("markup saved", "path", htmlPath, "bytes", len(sanitized))

		shotPath := strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath)) + ".png"
		var shot []byte
		if err := chromedp.Run(page.Ctx, chromedp.FullScreenshot(&shot, 90)); err != nil {
			logger.Warn("full-page screenshot failed", "error", err)
		} else if err := os.WriteFile(shotPath, shot, 0o644); err != nil {
			logger.Warn("could not write screenshot", "path", shotPath, "error", err)
		} else {
			resp.ScreenshotPath = shotPath
		}
	}

	e.persist(req, page, store, state)

	logger.Info("markup captured", "query", req.Query,
		"original_bytes", resp.OriginalHTMLLength, "sanitized_bytes", len(sanitized))
	return resp, nil
}

// SanitizeHTML strips stylesheets and scripts from captured markup so the
// payload is structural content only.
func SanitizeHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find(`style, script, link[rel="stylesheet"]`).Remove()
	return doc.Html()
}

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// captureFilename builds "<slug>-<timestamp>.html" from a query, with the
// slug reduced to alphanumerics and capped at 50 characters.
func captureFilename(query string, now time.Time) string {
	slug := filenameUnsafe.ReplaceAllString(query, "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return fmt.Sprintf("%s-%s.html", slug, now.Format("2006-01-02T15-04-05"))
}
