package search

import (
	"strings"
	"testing"
	"time"
)

// --- Sanitizer Tests ---

func TestSanitizeHTML_StripsStylesAndScripts(t *testing.T) {
	raw := `<html><head>
<style>body { color: red; }</style>
<link rel="stylesheet" href="/main.css">
<link rel="canonical" href="https://example.com/page">
<script src="/app.js"></script>
</head><body>
<script>inline()</script>
<div id="search">content stays</div>
</body></html>`

	got, err := SanitizeHTML(raw)
	if err != nil {
		t.Fatalf("SanitizeHTML() error = %v", err)
	}

	for _, banned := range []string{"<style", "<script", "main.css"} {
		if strings.Contains(got, banned) {
			t.Errorf("sanitized markup still contains %q", banned)
		}
	}
	if !strings.Contains(got, "content stays") {
		t.Error("content was stripped")
	}
	if !strings.Contains(got, "canonical") {
		t.Error("non-stylesheet link was removed")
	}
}

func TestSanitizeHTML_ShrinksPayload(t *testing.T) {
	raw := `<html><head><style>` + strings.Repeat("a{x:1}", 1000) + `</style></head><body>hi</body></html>`
	got, err := SanitizeHTML(raw)
	if err != nil {
		t.Fatalf("SanitizeHTML() error = %v", err)
	}
	if len(got) >= len(raw) {
		t.Errorf("sanitized size %d not smaller than original %d", len(got), len(raw))
	}
}

// --- Capture Filename Tests ---

func TestCaptureFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)

	tests := []struct {
		query string
		want  string
	}{
		{"golang context", "golang_context-2024-03-15T09-30-45.html"},
		{"c++ vs rust?", "c___vs_rust_-2024-03-15T09-30-45.html"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50) + "-2024-03-15T09-30-45.html"},
	}
	for _, tt := range tests {
		if got := captureFilename(tt.query, now); got != tt.want {
			t.Errorf("captureFilename(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

// --- Degraded Response Tests ---

func TestDegradedResponse(t *testing.T) {
	resp := degradedResponse("broken query", ErrBlockDetected)
	if resp.Query != "broken query" {
		t.Errorf("query = %q", resp.Query)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want exactly 1", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Title != "Search failed" {
		t.Errorf("title = %q", r.Title)
	}
	if !strings.Contains(r.Snippet, "broken query") || !strings.Contains(r.Snippet, ErrBlockDetected.Error()) {
		t.Errorf("snippet missing query or cause: %q", r.Snippet)
	}
}
