package search

import (
	"context"
	"sync"

	"github.com/serpforge/serpforge/internal/fetch"
	"github.com/serpforge/serpforge/internal/logger"
)

// enrichWorkers bounds concurrent static fetches during enrichment.
const enrichWorkers = 4

// minUsefulSnippet is the length below which a snippet is considered
// worth replacing with fetched page content.
const minUsefulSnippet = 20

// EnrichResults upgrades thin snippets by fetching each result page over
// plain HTTP and summarizing it. Results are modified in place; fetch
// failures leave the original snippet untouched.
func EnrichResults(ctx context.Context, fetcher *fetch.Fetcher, results []Result) {
	sem := make(chan struct{}, enrichWorkers)
	var wg sync.WaitGroup

	for i := range results {
		if len(results[i].Snippet) >= minUsefulSnippet || results[i].Link == "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(r *Result) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := fetcher.Summary(ctx, r.Link)
			if err != nil {
				logger.Debug("snippet enrichment failed", "url", r.Link, "error", err)
				return
			}
			if summary != "" {
				r.Snippet = summary
			}
		}(&results[i])
	}
	wg.Wait()
}
