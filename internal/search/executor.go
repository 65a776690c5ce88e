package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/serpforge/serpforge/internal/browser"
	"github.com/serpforge/serpforge/internal/fingerprint"
	"github.com/serpforge/serpforge/internal/logger"
)

// sorryPatterns are substrings of verification-page URLs. Matching is
// literal: the dedicated sorry endpoints first, then the generic
// challenge markers.
var sorryPatterns = []string{
	"google.com/sorry/index",
	"google.com/sorry",
	"recaptcha",
	"captcha",
	"unusual traffic",
}

// IsBlocked reports whether any of the given URLs looks like a
// bot-verification page. Empty strings are ignored.
func IsBlocked(urls ...string) bool {
	for _, u := range urls {
		if u == "" {
			continue
		}
		lower := strings.ToLower(u)
		for _, pattern := range sorryPatterns {
			if strings.Contains(lower, pattern) {
				return true
			}
		}
	}
	return false
}

// searchInputSelectors locate the query box across the markup variants
// the engine serves, most specific first.
var searchInputSelectors = []string{
	`textarea[name="q"]`,
	`input[name="q"]`,
	`textarea[title="Search"]`,
	`input[title="Search"]`,
	`textarea[aria-label="Search"]`,
	`input[aria-label="Search"]`,
	`textarea`,
}

// resultContainerSelectors identify a loaded results page, most specific
// first.
var resultContainerSelectors = []string{
	`#search`,
	`#rso`,
	`.g`,
	`[data-sokoban-container]`,
	`div[role="main"]`,
}

const (
	submitButtonSelector = `input[type="submit"], button[type="submit"], .gNO89b, .Tg7LZd`
	searchFormSelector   = `form[role="search"], form[action*="search"], form`
)

const (
	inputProbeTimeout  = 5 * time.Second
	submitWaitTimeout  = 10 * time.Second
	resultsBaseTimeout = 5 * time.Second
	resultsMaxTimeout  = 15 * time.Second
	resultsAttempts    = 3
	resultsRetryPause  = time.Second
)

// Executor drives query entry and submission on an open page.
type Executor struct{}

// CurrentURL returns the page's current location.
func CurrentURL(page *browser.Page) (string, error) {
	var loc string
	if err := chromedp.Run(page.Ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// findSearchInput probes the selector cascade with a short per-selector
// wait and returns the first selector with a visible match.
func (e *Executor) findSearchInput(page *browser.Page) (string, error) {
	for _, sel := range searchInputSelectors {
		probeCtx, cancel := context.WithTimeout(page.Ctx, inputProbeTimeout)
		err := chromedp.Run(probeCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			logger.Debug("search input found", "selector", sel)
			return sel, nil
		}
	}
	return "", ErrSearchBoxNotFound
}

// typeQuery enters the query into the focused input one character at a
// time with a short randomized delay, mimicking human typing cadence.
func typeQuery(ctx context.Context, query string) error {
	for _, r := range query {
		if err := chromedp.Run(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return err
		}
		time.Sleep(fingerprint.RandomDelay(10, 30))
	}
	return nil
}

// submitStrategy is one way of firing the query off the entry page.
type submitStrategy struct {
	name   string
	submit func() error
	// await reports whether the page navigated away and where it landed.
	await func() (navigated bool, loc string, err error)
}

// ExecuteSearch locates the query box, types the query and submits it,
// trying the submission strategies in order: Enter key, a visible submit
// button, then programmatic form submission. A strategy counts as
// successful once the location leaves the entry page for a non-blocked
// URL; landing on a verification page does not stop the cascade.
func (e *Executor) ExecuteSearch(page *browser.Page, query string) error {
	inputSel, err := e.findSearchInput(page)
	if err != nil {
		return err
	}

	err = chromedp.Run(page.Ctx,
		chromedp.Click(inputSel, chromedp.ByQuery),
		chromedp.Clear(inputSel, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("focus search input: %w", err)
	}

	logger.Debug("typing query", "length", len(query))
	if err := typeQuery(page.Ctx, query); err != nil {
		return fmt.Errorf("type query: %w", err)
	}
	time.Sleep(fingerprint.RandomDelay(100, 300))

	startURL, err := CurrentURL(page)
	if err != nil {
		return fmt.Errorf("read page location: %w", err)
	}

	await := func() (bool, string, error) {
		return waitForNavigation(page, startURL, submitWaitTimeout)
	}

	strategies := []submitStrategy{
		{name: "enter-key", await: await, submit: func() error {
			return chromedp.Run(page.Ctx, chromedp.KeyEvent(kb.Enter))
		}},
		{name: "submit-button", await: await, submit: func() error {
			clickCtx, cancel := context.WithTimeout(page.Ctx, inputProbeTimeout)
			defer cancel()
			return chromedp.Run(clickCtx, chromedp.Click(submitButtonSelector, chromedp.ByQuery))
		}},
		{name: "form-submit", await: await, submit: func() error {
			script := fmt.Sprintf(
				`(() => { const f = document.querySelector(%q); if (!f) return false; f.submit(); return true; })()`,
				searchFormSelector)
			var submitted bool
			if err := chromedp.Run(page.Ctx, chromedp.Evaluate(script, &submitted)); err != nil {
				return err
			}
			if !submitted {
				return errors.New("no search form present")
			}
			return nil
		}},
	}

	return runSubmissionCascade(strategies, func() (string, error) {
		return CurrentURL(page)
	})
}

// runSubmissionCascade tries every strategy in order. Landing on a
// verification page does not short-circuit the cascade: a later strategy
// may still get through. The block-vs-failure diagnosis happens only after
// all strategies are exhausted, from the page's final location.
func runSubmissionCascade(strategies []submitStrategy, finalURL func() (string, error)) error {
	for _, strategy := range strategies {
		logger.Debug("submitting search", "strategy", strategy.name)
		if err := strategy.submit(); err != nil {
			logger.Debug("submission attempt failed", "strategy", strategy.name, "error", err)
			continue
		}

		navigated, loc, err := strategy.await()
		if err != nil {
			logger.Debug("waiting for navigation failed", "strategy", strategy.name, "error", err)
			continue
		}
		if IsBlocked(loc) {
			logger.Warn("submission landed on a verification page", "strategy", strategy.name, "url", loc)
			continue
		}
		if navigated {
			logger.Info("search submitted", "strategy", strategy.name)
			return nil
		}
	}

	if loc, err := finalURL(); err == nil && IsBlocked(loc) {
		return fmt.Errorf("%w: submission left the page on %s", ErrBlockDetected, loc)
	}
	return ErrSearchExecutionFailed
}

// waitForNavigation polls the location until it changes from startURL or
// the budget runs out. Landing on any new URL, including a verification
// page, counts as navigation; the caller classifies the destination.
func waitForNavigation(page *browser.Page, startURL string, budget time.Duration) (bool, string, error) {
	deadline := time.Now().Add(budget)
	loc := startURL
	for time.Now().Before(deadline) {
		var err error
		loc, err = CurrentURL(page)
		if err != nil {
			return false, "", err
		}
		if loc != startURL {
			waitCtx, cancel := context.WithTimeout(page.Ctx, budget)
			err = chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
			cancel()
			if err != nil && page.Ctx.Err() != nil {
				return false, "", err
			}
			return true, loc, nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return false, loc, nil
}

// progressiveTimeouts returns the per-attempt waits for result detection:
// each attempt doubles the previous budget up to the cap.
func progressiveTimeouts(base, max time.Duration, attempts int) []time.Duration {
	out := make([]time.Duration, 0, attempts)
	t := base
	for i := 0; i < attempts; i++ {
		out = append(out, t)
		t *= 2
		if t > max {
			t = max
		}
	}
	return out
}

// resultProbe is one visibility check in the result-wait plan.
type resultProbe struct {
	selector string
	budget   time.Duration
	attempt  int
}

// resultProbePlan gives each container selector its own progressive
// attempt ladder, exhausting one selector before moving to the next.
func resultProbePlan() []resultProbe {
	timeouts := progressiveTimeouts(resultsBaseTimeout, resultsMaxTimeout, resultsAttempts)
	plan := make([]resultProbe, 0, len(resultContainerSelectors)*len(timeouts))
	for _, sel := range resultContainerSelectors {
		for i, budget := range timeouts {
			plan = append(plan, resultProbe{selector: sel, budget: budget, attempt: i + 1})
		}
	}
	return plan
}

// WaitForResults waits for any result container to appear, retrying each
// selector with progressively longer budgets. When every probe fails the
// page URL decides the diagnosis: a verification URL means blocked,
// anything else means the result markup has drifted.
func (e *Executor) WaitForResults(page *browser.Page) error {
	for _, probe := range resultProbePlan() {
		probeCtx, cancel := context.WithTimeout(page.Ctx, probe.budget)
		err := chromedp.Run(probeCtx, chromedp.WaitVisible(probe.selector, chromedp.ByQuery))
		cancel()
		if err == nil {
			logger.Debug("results detected", "selector", probe.selector, "attempt", probe.attempt)
			return nil
		}
		if page.Ctx.Err() != nil {
			return page.Ctx.Err()
		}
		logger.Debug("no result container yet",
			"selector", probe.selector, "attempt", probe.attempt, "budget", probe.budget)
		if probe.attempt < resultsAttempts {
			time.Sleep(resultsRetryPause)
		}
	}

	loc, err := CurrentURL(page)
	if err == nil && IsBlocked(loc) {
		return fmt.Errorf("%w: results page is %s", ErrBlockDetected, loc)
	}
	return ErrResultsNotFound
}
