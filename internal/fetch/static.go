// Package fetch retrieves result pages over plain HTTP, without a browser,
// for enriching search results whose snippets came back empty.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/serpforge/serpforge/internal/logger"
)

const staticUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher performs static page fetches with a shared timeout.
type Fetcher struct {
	UserAgent string
	Timeout   time.Duration
}

// NewFetcher creates a static fetcher with defaults suitable for snippet
// enrichment.
func NewFetcher() *Fetcher {
	return &Fetcher{
		UserAgent: staticUserAgent,
		Timeout:   10 * time.Second,
	}
}

// Summary fetches a page and returns a short plain-text summary: the meta
// description when present, otherwise the first substantial paragraph.
func (f *Fetcher) Summary(ctx context.Context, pageURL string) (string, error) {
	var (
		body     []byte
		fetchErr error
	)

	c := colly.NewCollector(colly.UserAgent(f.UserAgent))
	c.SetRequestTimeout(f.Timeout)
	c.Context = ctx

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	logger.Debug("fetching page for snippet", "url", pageURL)
	if err := c.Visit(pageURL); err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if fetchErr != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}

	return summaryFromHTML(string(body))
}

// summaryLimit caps enrichment snippets so they stay snippet-sized.
const summaryLimit = 300

func summaryFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return truncate(desc, summaryLimit), nil
		}
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return truncate(desc, summaryLimit), nil
		}
	}

	var summary string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len(text) > 50 {
			summary = truncate(text, summaryLimit)
			return false
		}
		return true
	})
	return summary, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
