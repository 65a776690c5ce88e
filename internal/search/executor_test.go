package search

import (
	"errors"
	"testing"
	"time"
)

// --- Block Detection Tests ---

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		urls []string
		want bool
	}{
		{"sorry index", []string{"https://www.google.com/sorry/index?continue=https://www.google.com/search"}, true},
		{"sorry bare", []string{"https://www.google.com/sorry"}, true},
		{"recaptcha", []string{"https://www.google.com/recaptcha/api2/anchor"}, true},
		{"captcha fragment", []string{"https://example.com/captcha-check"}, true},
		{"case insensitive", []string{"https://www.google.com/SORRY/index"}, true},
		{"results page", []string{"https://www.google.com/search?q=golang"}, false},
		{"entry page", []string{"https://www.google.co.uk"}, false},
		{"second url blocked", []string{"https://www.google.com/search?q=x", "https://www.google.com/sorry/index"}, true},
		{"empty strings ignored", []string{"", ""}, false},
		{"no urls", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlocked(tt.urls...); got != tt.want {
				t.Errorf("IsBlocked(%v) = %v, want %v", tt.urls, got, tt.want)
			}
		})
	}
}

// --- Submission Cascade Tests ---

// cascadeStrategy builds a strategy with a canned outcome, recording into
// tried when its submit fires.
func cascadeStrategy(name string, navigated bool, loc string, tried *[]string) submitStrategy {
	return submitStrategy{
		name: name,
		submit: func() error {
			*tried = append(*tried, name)
			return nil
		},
		await: func() (bool, string, error) {
			return navigated, loc, nil
		},
	}
}

func TestRunSubmissionCascade_BlockDoesNotShortCircuit(t *testing.T) {
	var tried []string
	sorry := "https://www.google.com/sorry/index?continue=https://www.google.com/search"
	strategies := []submitStrategy{
		cascadeStrategy("enter-key", true, sorry, &tried),
		cascadeStrategy("submit-button", true, sorry, &tried),
		cascadeStrategy("form-submit", true, sorry, &tried),
	}

	err := runSubmissionCascade(strategies, func() (string, error) { return sorry, nil })
	if !errors.Is(err, ErrBlockDetected) {
		t.Errorf("error = %v, want ErrBlockDetected", err)
	}
	if len(tried) != 3 {
		t.Errorf("strategies tried = %v, want all three despite the block", tried)
	}
}

func TestRunSubmissionCascade_LaterStrategyRecoversFromBlock(t *testing.T) {
	var tried []string
	strategies := []submitStrategy{
		cascadeStrategy("enter-key", true, "https://www.google.com/sorry/index", &tried),
		cascadeStrategy("submit-button", true, "https://www.google.com/search?q=golang", &tried),
		cascadeStrategy("form-submit", true, "https://www.google.com/search?q=golang", &tried),
	}

	err := runSubmissionCascade(strategies, func() (string, error) {
		return "https://www.google.com/search?q=golang", nil
	})
	if err != nil {
		t.Fatalf("runSubmissionCascade() error = %v", err)
	}
	if len(tried) != 2 {
		t.Errorf("strategies tried = %v, want the cascade to stop at the first clean navigation", tried)
	}
}

func TestRunSubmissionCascade_ExhaustedWithoutBlock(t *testing.T) {
	var tried []string
	entry := "https://www.google.com"
	strategies := []submitStrategy{
		cascadeStrategy("enter-key", false, entry, &tried),
		cascadeStrategy("submit-button", false, entry, &tried),
		cascadeStrategy("form-submit", false, entry, &tried),
	}

	err := runSubmissionCascade(strategies, func() (string, error) { return entry, nil })
	if !errors.Is(err, ErrSearchExecutionFailed) {
		t.Errorf("error = %v, want ErrSearchExecutionFailed", err)
	}
}

// --- Progressive Timeout Tests ---

func TestProgressiveTimeouts(t *testing.T) {
	got := progressiveTimeouts(resultsBaseTimeout, resultsMaxTimeout, resultsAttempts)
	want := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

	if len(got) != len(want) {
		t.Fatalf("got %d attempts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d: budget %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestProgressiveTimeouts_CapHolds(t *testing.T) {
	got := progressiveTimeouts(4*time.Second, 6*time.Second, 4)
	want := []time.Duration{4 * time.Second, 6 * time.Second, 6 * time.Second, 6 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d: budget %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestResultProbePlan_PerSelectorLadder(t *testing.T) {
	plan := resultProbePlan()
	if len(plan) != len(resultContainerSelectors)*resultsAttempts {
		t.Fatalf("plan length = %d, want %d", len(plan), len(resultContainerSelectors)*resultsAttempts)
	}

	// Each selector exhausts its full 5s/10s/15s ladder before the next
	// selector is probed.
	ladder := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
	for i, probe := range plan {
		wantSel := resultContainerSelectors[i/resultsAttempts]
		wantBudget := ladder[i%resultsAttempts]
		if probe.selector != wantSel || probe.budget != wantBudget || probe.attempt != i%resultsAttempts+1 {
			t.Errorf("plan[%d] = {%q %v attempt %d}, want {%q %v attempt %d}",
				i, probe.selector, probe.budget, probe.attempt, wantSel, wantBudget, i%resultsAttempts+1)
		}
	}
}

// --- Request Defaults Tests ---

func TestRequestWithDefaults(t *testing.T) {
	req := Request{Query: "test"}.withDefaults()
	if req.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", req.Limit, DefaultLimit)
	}
	if req.TimeoutMs != DefaultTimeoutMs {
		t.Errorf("timeout = %d, want %d", req.TimeoutMs, DefaultTimeoutMs)
	}
	if req.StateFile != DefaultStateFile {
		t.Errorf("state file = %q, want %q", req.StateFile, DefaultStateFile)
	}
	if req.timeout() != 60*time.Second {
		t.Errorf("timeout duration = %v, want 60s", req.timeout())
	}
}

func TestRequestWithDefaults_KeepsExplicitValues(t *testing.T) {
	req := Request{Query: "test", Limit: 5, TimeoutMs: 30000, StateFile: "/tmp/s.json"}.withDefaults()
	if req.Limit != 5 || req.TimeoutMs != 30000 || req.StateFile != "/tmp/s.json" {
		t.Errorf("explicit values overwritten: %+v", req)
	}
}

func TestRequestValidate(t *testing.T) {
	empty := Request{}.withDefaults()
	if err := empty.Validate(); err == nil {
		t.Error("expected validation error for empty query")
	}

	over := Request{Query: "x", Limit: 500}
	if err := over.Validate(); err == nil {
		t.Error("expected validation error for limit over 100")
	}

	ok := Request{Query: "x"}.withDefaults()
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
