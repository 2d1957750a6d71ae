package zapier

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/harvest"
)

// Options tune the listing discovery walk.
type Options struct {
	ListingURL string
	MaxScrolls int
}

// Fetcher discovers template URLs by scrolling the listing page until
// the set of template links stops growing.
type Fetcher struct {
	browser *Browser
	opts    Options
	logger  *zap.Logger
}

// NewFetcher builds a Fetcher sharing the harvest browser.
func NewFetcher(browser *Browser, opts Options, logger *zap.Logger) *Fetcher {
	if opts.ListingURL == "" {
		opts.ListingURL = "https://zapier.com/templates"
	}
	if opts.MaxScrolls <= 0 {
		opts.MaxScrolls = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{browser: browser, opts: opts, logger: logger}
}

const collectLinksJS = `Array.from(document.querySelectorAll('a[href*="/templates/"]'))
	.map(a => a.href)
	.filter(href => href.includes('/templates/') && !href.endsWith('/templates/'))`

// FetchAll loads the listing page, scrolls until the link count is
// stable, and returns one raw record per discovered template URL.
func (f *Fetcher) FetchAll(ctx context.Context) ([]harvest.RawRecord, error) {
	tabCtx, cancel := f.browser.newTab(ctx)
	defer cancel()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(f.opts.ListingURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("open listing %s: %w", f.opts.ListingURL, err)
	}

	lastCount := -1
	for scroll := 0; scroll < f.opts.MaxScrolls; scroll++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var count int
		if err := chromedp.Run(tabCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(1500*time.Millisecond),
			chromedp.Evaluate(`document.querySelectorAll('a[href*="/templates/"]').length`, &count),
		); err != nil {
			return nil, fmt.Errorf("scroll listing: %w", err)
		}
		f.logger.Debug("listing scroll",
			zap.Int("scroll", scroll+1),
			zap.Int("links", count),
		)
		if count == lastCount {
			break
		}
		lastCount = count
	}

	var hrefs []string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(collectLinksJS, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect template links: %w", err)
	}

	records := recordsFromLinks(hrefs)
	f.logger.Info("listing discovered",
		zap.Int("links", len(hrefs)),
		zap.Int("templates", len(records)),
	)
	return records, nil
}

// recordsFromLinks dedupes discovered hrefs and seeds one raw record per
// template, keyed by the slug taken from the URL path.
func recordsFromLinks(hrefs []string) []harvest.RawRecord {
	seen := make(map[string]struct{}, len(hrefs))
	var records []harvest.RawRecord
	for _, href := range hrefs {
		slug := slugFromURL(href)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		records = append(records, harvest.RawRecord{
			"url":  href,
			"slug": slug,
		})
	}
	return records
}

// slugFromURL returns the path segment after /templates/, or "".
func slugFromURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "templates" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
