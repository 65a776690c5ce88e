package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/serpforge/serpforge/internal/browser"
)

// --- Escalation Bound Tests ---

func TestSearch_EscalatesExactlyOnce(t *testing.T) {
	e := NewEngine()
	var calls []bool
	e.runSearch = func(_ context.Context, req Request, escalated bool) (*Response, error) {
		calls = append(calls, escalated)
		if !escalated {
			return nil, fmt.Errorf("blocked at landing: %w", errEscalateHeadful)
		}
		return &Response{Query: req.Query, Results: []Result{{Title: "ok", Link: "https://example.com"}}}, nil
	}

	resp, err := e.Search(context.Background(), Request{Query: "weather tomorrow"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Errorf("run calls (escalated flags) = %v, want [false true]", calls)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "ok" {
		t.Errorf("headful retry response not returned: %+v", resp)
	}
}

func TestSearch_NeverEscalatesTwice(t *testing.T) {
	e := NewEngine()
	runs := 0
	e.runSearch = func(context.Context, Request, bool) (*Response, error) {
		runs++
		return nil, fmt.Errorf("blocked at landing: %w", errEscalateHeadful)
	}

	resp, err := e.Search(context.Background(), Request{Query: "weather tomorrow"})
	if runs != 2 {
		t.Errorf("runs = %d, want exactly 2 (one relaunch, not two)", runs)
	}
	if err == nil {
		t.Error("expected an error when the headful retry stays blocked")
	}
	if resp == nil || len(resp.Results) != 1 || resp.Results[0].Title != "Search failed" {
		t.Errorf("expected the degraded single-result response, got %+v", resp)
	}
}

func TestSearch_NoEscalationWithoutBlock(t *testing.T) {
	e := NewEngine()
	runs := 0
	e.runSearch = func(context.Context, Request, bool) (*Response, error) {
		runs++
		return nil, errors.New("chrome executable not found")
	}

	if _, err := e.Search(context.Background(), Request{Query: "weather"}); err == nil {
		t.Error("expected the launch error to propagate")
	}
	if runs != 1 {
		t.Errorf("runs = %d, non-block failures must not trigger a retry", runs)
	}
}

// --- Session Ownership Tests ---

func TestEngineOwnsSession(t *testing.T) {
	standalone := NewEngine()
	if !standalone.ownsSession(false) || !standalone.ownsSession(true) {
		t.Error("an engine without an injected session launches and closes its own")
	}

	injected := NewEngine(WithSession(browser.WrapSession(context.Background())))
	if injected.ownsSession(false) {
		t.Error("an injected session must never be closed by a search run")
	}
	if !injected.ownsSession(true) {
		t.Error("escalation launches its own headful instance even with an injected session")
	}
}
