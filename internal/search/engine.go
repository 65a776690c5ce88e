package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/serpforge/serpforge/internal/browser"
	"github.com/serpforge/serpforge/internal/fingerprint"
	"github.com/serpforge/serpforge/internal/logger"
)

// Engine orchestrates a full search run: state restore, browser launch,
// navigation, verification handling with a single headless-to-headful
// escalation, query execution, extraction and state persistence.
type Engine struct {
	browser  *browser.Manager
	executor *Executor

	// runSearch points at run; indirection so the retry bound in Search
	// can be exercised without a browser.
	runSearch func(ctx context.Context, req Request, escalated bool) (*Response, error)

	// session, when set, is a caller-supplied browser reused for every run
	// and never closed here. Escalation still launches its own headful
	// instance, since an external browser's mode cannot be changed.
	session *browser.Session

	// blockWaitBudget caps how long a headful session waits for the
	// operator to clear a verification page. Zero means twice the request
	// timeout.
	blockWaitBudget time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithSession makes the engine run its searches in a caller-supplied
// browser session instead of launching one per search. The engine never
// closes an injected session, whether it came from Manager.Launch or
// WrapSession; shutting it down stays with the caller.
func WithSession(sess *browser.Session) Option {
	return func(e *Engine) { e.session = sess }
}

// WithBlockWaitBudget overrides the headful verification wait budget.
func WithBlockWaitBudget(d time.Duration) Option {
	return func(e *Engine) { e.blockWaitBudget = d }
}

// NewEngine creates a search engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		browser:  browser.NewManager(),
		executor: &Executor{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.runSearch = e.run
	return e
}

// errEscalateHeadful unwinds a blocked headless run so the caller can
// retry it headful. It never leaves this package: the single retry in
// Search is the only place that consumes it, which keeps the escalation
// bound explicit rather than buried in a recursive call.
var errEscalateHeadful = errors.New("escalate to headful")

// Search runs one query end to end, retrying at most once in headful
// mode when the headless run hits a verification page. On orchestration
// failure the error is returned together with a degraded response holding
// a single synthetic result describing the failure, so embedders that
// must always render something can use the response and ignore the error.
// A nil response means the request itself was invalid.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	logger.Info("starting search", "query", req.Query, "limit", req.Limit, "timeout_ms", req.TimeoutMs)

	resp, err := e.runSearch(ctx, req, false)
	if errors.Is(err, errEscalateHeadful) {
		logger.Info("restarting in headful mode for manual verification", "query", req.Query)
		resp, err = e.runSearch(ctx, req, true)
	}
	if err != nil {
		logger.Error("search failed", "query", req.Query, "error", err)
		return degradedResponse(req.Query, err), err
	}
	return resp, nil
}

// run executes the orchestration sequence once. escalated marks the
// headful retry after a verification block.
func (e *Engine) run(ctx context.Context, req Request, escalated bool) (*Response, error) {
	store := fingerprint.NewStore(req.StateFile)
	storageState, state := store.Load()

	sess := e.session
	if e.ownsSession(escalated) {
		var err error
		sess, err = e.browser.Launch(ctx, !escalated, req.timeout())
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
	logger.Info("navigating to search engine", "domain", domain)
	if err := e.navigate(page, domain, req.timeout()); err != nil {
		return nil, err
	}

	if err := e.checkBlock(ctx, req, page, sess, store, state, escalated, "landing"); err != nil {
		return nil, err
	}

	if err := e.executor.ExecuteSearch(page, req.Query); err != nil {
		if !errors.Is(err, ErrBlockDetected) {
			e.persist(req, page, store, state)
			return nil, err
		}
		if err := e.escalateOrWait(ctx, req, page, sess, store, state, escalated, "query submission"); err != nil {
			return nil, err
		}
	}

	if err := e.executor.WaitForResults(page); err != nil {
		if !errors.Is(err, ErrBlockDetected) {
			e.persist(req, page, store, state)
			return nil, err
		}
		if err := e.escalateOrWait(ctx, req, page, sess, store, state, escalated, "result wait"); err != nil {
			return nil, err
		}
		if err := e.executor.WaitForResults(page); err != nil {
			e.persist(req, page, store, state)
			return nil, err
		}
	}

	results, err := ExtractResults(page, req.Limit)
	if err != nil {
		e.persist(req, page, store, state)
		return nil, err
	}
	logger.Info("search finished", "query", req.Query, "results", len(results))

	e.persist(req, page, store, state)
	return &Response{Query: req.Query, Results: results}, nil
}

// ownsSession reports whether this run launches, and therefore closes,
// its own browser. An injected session is reused as-is; escalation always
// gets a fresh headful instance, since a running browser cannot change
// mode.
func (e *Engine) ownsSession(escalated bool) bool {
	return e.session == nil || escalated
}

// navigate loads the search-engine entry page within the request budget.
func (e *Engine) navigate(page *browser.Page, url string, budget time.Duration) error {
	navCtx, cancel := context.WithTimeout(page.Ctx, budget)
	defer cancel()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s did not load within %s", ErrNavigationTimeout, url, budget)
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// checkBlock inspects the current location and routes a verification page
// into the escalation path. A nil return means no block, or a block that
// cleared, and the run continues.
func (e *Engine) checkBlock(ctx context.Context, req Request, page *browser.Page, sess *browser.Session, store *fingerprint.Store, state *fingerprint.State, escalated bool, stage string) error {
	loc, err := CurrentURL(page)
	if err != nil {
		return fmt.Errorf("read page location: %w", err)
	}
	if !IsBlocked(loc) {
		return nil
	}
	logger.Warn("verification page detected", "stage", stage, "url", loc)
	return e.escalateOrWait(ctx, req, page, sess, store, state, escalated, stage)
}

// escalateOrWait handles a detected block. A blocked headless run is
// unwound with errEscalateHeadful for the single headful retry; a blocked
// headful (or already-escalated, or caller-supplied) session is polled
// until the verification URL clears or the wait budget expires. A nil
// return means the block cleared.
func (e *Engine) escalateOrWait(ctx context.Context, req Request, page *browser.Page, sess *browser.Session, store *fingerprint.Store, state *fingerprint.State, escalated bool, stage string) error {
	if !escalated && sess.Headless {
		e.persist(req, page, store, state)
		return fmt.Errorf("blocked at %s: %w", stage, errEscalateHeadful)
	}

	budget := e.blockWaitBudget
	if budget <= 0 {
		budget = 2 * req.timeout()
	}
	logger.Info("waiting for operator to clear verification page", "budget", budget)

	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		loc, err := CurrentURL(page)
		if err != nil {
			return fmt.Errorf("read page location: %w", err)
		}
		if !IsBlocked(loc) {
			logger.Info("verification cleared", "url", loc)
			return nil
		}
		time.Sleep(time.Second)
	}

	e.persist(req, page, store, state)
	return fmt.Errorf("%w: not cleared within %s at %s", ErrBlockDetected, budget, stage)
}

// persist writes the storage state and fingerprint sidecar. Both writes
// are best effort on success and failure paths alike: losing state never
// changes the search outcome.
func (e *Engine) persist(req Request, page *browser.Page, store *fingerprint.Store, state *fingerprint.State) {
	if req.NoSaveState {
		logger.Debug("state persistence disabled for this request")
		return
	}
	if err := e.browser.SaveStorageState(page, req.StateFile); err != nil {
		logger.Warn("could not save browser storage state", "path", req.StateFile, "error", err)
	}
	if err := store.Save(state); err != nil {
		logger.Warn("could not save fingerprint sidecar", "path", store.SidecarFile, "error", err)
	}
}

// degradedResponse is the single-result shape returned when a search
// could not complete, mirroring what a result row would carry.
func degradedResponse(query string, err error) *Response {
	return &Response{
		Query: query,
		Results: []Result{{
			Title:   "Search failed",
			Link:    "",
			Snippet: fmt.Sprintf("Unable to complete search for %q: %v", query, err),
		}},
	}
}
