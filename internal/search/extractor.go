package search

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/serpforge/serpforge/internal/browser"
	"github.com/serpforge/serpforge/internal/logger"
)

// selectorSet is one container/title/snippet triple tried against the
// results page. The sets are ordered from the current markup generation
// to older fallbacks.
type selectorSet struct {
	Container string
	Title     string
	Snippet   string
}

var resultSelectorSets = []selectorSet{
	{Container: `#search div[data-hveid]`, Title: `h3`, Snippet: `.VwiC3b`},
	{Container: `#rso div[data-hveid]`, Title: `h3`, Snippet: `[data-sncf="1"]`},
	{Container: `.g`, Title: `h3`, Snippet: `div[style*="webkit-line-clamp"]`},
	{Container: `div[jscontroller][data-hveid]`, Title: `h3`, Snippet: `div[role="text"]`},
}

// alternativeSnippetSelectors are tried when a container matched but its
// primary snippet selector came up empty.
var alternativeSnippetSelectors = []string{
	`.VwiC3b`,
	`[data-sncf="1"]`,
	`div[style*="webkit-line-clamp"]`,
	`div[role="text"]`,
}

// excludedLinkFragments filter navigation and account links out of the
// last-resort anchor scan.
var excludedLinkFragments = []string{
	"google.com/search",
	"google.com/preferences",
	"accounts.google",
	"support.google",
}

// extractScript mirrors the selector cascade in page context, where
// rendered visibility and computed styles are available. It returns
// deduplicated {title, link, snippet} objects, falling back to a bare
// anchor scan when no selector set matches.
const extractScript = `
(maxResults) => {
    const results = [];
    const seen = new Set();

    const push = (title, link, snippet) => {
        if (!title || !link) return;
        if (!link.startsWith('http')) return;
        if (seen.has(link)) return;
        seen.add(link);
        results.push({ title, link, snippet: snippet || '' });
    };

    const selectorSets = [
        { container: '#search div[data-hveid]', title: 'h3', snippet: '.VwiC3b' },
        { container: '#rso div[data-hveid]', title: 'h3', snippet: '[data-sncf="1"]' },
        { container: '.g', title: 'h3', snippet: 'div[style*="webkit-line-clamp"]' },
        { container: 'div[jscontroller][data-hveid]', title: 'h3', snippet: 'div[role="text"]' }
    ];
    const altSnippets = ['.VwiC3b', '[data-sncf="1"]', 'div[style*="webkit-line-clamp"]', 'div[role="text"]'];

    for (const set of selectorSets) {
        if (results.length >= maxResults) break;
        const containers = document.querySelectorAll(set.container);
        for (const el of containers) {
            if (results.length >= maxResults) break;
            const titleEl = el.querySelector(set.title);
            if (!titleEl) continue;
            const anchor = titleEl.closest('a') || el.querySelector('a[href]');
            if (!anchor) continue;

            let snippet = '';
            const snippetEl = el.querySelector(set.snippet);
            if (snippetEl) {
                snippet = snippetEl.textContent.trim();
            } else {
                for (const alt of altSnippets) {
                    const altEl = el.querySelector(alt);
                    if (altEl) { snippet = altEl.textContent.trim(); break; }
                }
                if (!snippet) {
                    for (const div of el.querySelectorAll('div')) {
                        const text = div.textContent.trim();
                        if (text.length > 20) { snippet = text; break; }
                    }
                }
            }
            push(titleEl.textContent.trim(), anchor.href, snippet);
        }
    }

    if (results.length < maxResults) {
        const excluded = ['google.com/search', 'google.com/preferences', 'accounts.google', 'support.google'];
        for (const anchor of document.querySelectorAll('a[href^="http"]')) {
            if (results.length >= maxResults) break;
            const href = anchor.href;
            if (excluded.some(f => href.includes(f))) continue;
            const text = anchor.textContent.trim();
            if (text.length < 15) continue;
            push(text, href, '');
        }
    }

    return results.slice(0, maxResults);
}
`

// ExtractResults runs the selector cascade inside the page. When the
// in-page pass yields nothing the page markup is pulled out and re-parsed
// offline, which also covers pages where script evaluation is flaky.
func ExtractResults(page *browser.Page, limit int) ([]Result, error) {
	var results []Result
	expr := fmt.Sprintf("(%s)(%d)", extractScript, limit)
	if err := chromedp.Run(page.Ctx, chromedp.Evaluate(expr, &results)); err != nil {
		logger.Warn("in-page extraction failed, re-parsing markup", "error", err)
		results = nil
	}
	if len(results) > 0 {
		return results, nil
	}

	var html string
	if err := chromedp.Run(page.Ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}
	return ExtractFromHTML(html, limit)
}

// ExtractFromHTML applies the selector cascade to raw markup. It is the
// offline twin of the in-page pass, used as a fallback and directly
// testable against captured pages.
func ExtractFromHTML(html string, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := make([]Result, 0, limit)
	seen := make(map[string]bool)
	push := func(title, link, snippet string) {
		if len(results) >= limit || title == "" || !strings.HasPrefix(link, "http") || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, Result{Title: title, Link: link, Snippet: snippet})
	}

	for _, set := range resultSelectorSets {
		doc.Find(set.Container).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if len(results) >= limit {
				return false
			}
			titleEl := el.Find(set.Title).First()
			if titleEl.Length() == 0 {
				return true
			}
			anchor := titleEl.Closest("a")
			if anchor.Length() == 0 {
				anchor = el.Find("a[href]").First()
			}
			href, ok := anchor.Attr("href")
			if !ok {
				return true
			}
			push(cleanText(titleEl.Text()), href, containerSnippet(el, set.Snippet))
			return true
		})
	}

	// Dedup carries across sets, so overlapping selector generations do not
	// double-count; the anchor scan only tops up what the cascade missed.
	if len(results) < limit {
		doc.Find(`a[href^="http"]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
			if len(results) >= limit {
				return false
			}
			href, _ := anchor.Attr("href")
			for _, fragment := range excludedLinkFragments {
				if strings.Contains(href, fragment) {
					return true
				}
			}
			text := cleanText(anchor.Text())
			if len(text) < 15 {
				return true
			}
			push(text, href, "")
			return true
		})
	}

	return results, nil
}

func containerSnippet(el *goquery.Selection, primary string) string {
	if s := el.Find(primary).First(); s.Length() > 0 {
		return cleanText(s.Text())
	}
	for _, alt := range alternativeSnippetSelectors {
		if s := el.Find(alt).First(); s.Length() > 0 {
			return cleanText(s.Text())
		}
	}
	var snippet string
	el.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := cleanText(div.Text())
		if len(text) > 20 {
			snippet = text
			return false
		}
		return true
	})
	return snippet
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
