// Package search implements the search orchestration engine: it drives a
// browser session against a public search engine, recovers from
// bot-verification challenges with a bounded headless-to-headful
// escalation, and extracts structured results through a cascade of
// structural selectors.
package search

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to zero-valued request fields.
const (
	DefaultLimit     = 10
	DefaultTimeoutMs = 60000
	DefaultStateFile = "./browser-state.json"
)

// Request describes one search call. It is immutable input; defaults are
// applied to a copy.
type Request struct {
	Query       string `json:"query" validate:"required"`
	Limit       int    `json:"limit" validate:"gte=0,lte=100"`
	TimeoutMs   int    `json:"timeout_ms" validate:"gte=0"`
	StateFile   string `json:"state_file"`
	NoSaveState bool   `json:"no_save_state"`
	Locale      string `json:"locale"`
}

var validate = validator.New()

// Validate checks request constraints.
func (r *Request) Validate() error {
	return validate.Struct(r)
}

func (r Request) withDefaults() Request {
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.TimeoutMs == 0 {
		r.TimeoutMs = DefaultTimeoutMs
	}
	if r.StateFile == "" {
		r.StateFile = DefaultStateFile
	}
	return r
}

func (r Request) timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// Result is one extracted search result. Within a response, links are
// unique and absolute.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Response is the ordered result set for a query, at most the requested
// limit long.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// HTMLResponse carries the sanitized markup of a results page.
type HTMLResponse struct {
	Query              string `json:"query"`
	HTML               string `json:"html"`
	URL                string `json:"url"`
	SavedPath          string `json:"saved_path,omitempty"`
	ScreenshotPath     string `json:"screenshot_path,omitempty"`
	OriginalHTMLLength int    `json:"original_html_length"`
}

// Failure kinds. Callers classify with errors.Is; persistence failures are
// never surfaced as errors at all (logged at the save site).
var (
	// ErrBlockDetected means a verification page was encountered and not
	// resolved within the escalation/wait budget.
	ErrBlockDetected = errors.New("verification page detected")

	// ErrSearchBoxNotFound means no query input matched any candidate
	// selector.
	ErrSearchBoxNotFound = errors.New("search box not found")

	// ErrSearchExecutionFailed means all submission strategies were
	// exhausted.
	ErrSearchExecutionFailed = errors.New("search execution failed")

	// ErrResultsNotFound means no result container appeared and no block
	// was detected, which usually indicates page-structure drift.
	ErrResultsNotFound = errors.New("search results not found")

	// ErrNavigationTimeout means the initial navigation did not complete
	// within the budget.
	ErrNavigationTimeout = errors.New("navigation timeout")
)
