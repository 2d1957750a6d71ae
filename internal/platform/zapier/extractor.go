package zapier

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/harvest"
)

// Extractor opens each template page in its own tab and pulls the
// detail fields the listing does not carry.
type Extractor struct {
	browser *Browser
	logger  *zap.Logger
}

// NewExtractor builds an Extractor sharing the harvest browser.
func NewExtractor(browser *Browser, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{browser: browser, logger: logger}
}

const extractDetailJS = `(() => {
	const text = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.textContent.trim() : '';
	};
	const meta = (name) => {
		const el = document.querySelector('meta[name="' + name + '"], meta[property="' + name + '"]');
		return el ? (el.getAttribute('content') || '').trim() : '';
	};
	const apps = Array.from(document.querySelectorAll('img[alt*="logo"], [data-testid*="app"] img'))
		.map(el => (el.getAttribute('alt') || '').replace(/ logo$/i, '').trim())
		.filter(alt => alt.length > 0);
	return {
		h1_title: text('h1'),
		meta_title: document.title || '',
		description: meta('description') || meta('og:description'),
		apps: [...new Set(apps)],
	};
})()`

type pageDetail struct {
	H1Title     string   `json:"h1_title"`
	MetaTitle   string   `json:"meta_title"`
	Description string   `json:"description"`
	Apps        []string `json:"apps"`
}

// Extract navigates to the record's URL within the page timeout and
// merges the scraped detail fields into a copy of the input.
func (e *Extractor) Extract(ctx context.Context, raw harvest.RawRecord) (harvest.RawRecord, error) {
	pageURL := raw.String("url")
	if pageURL == "" {
		return nil, fmt.Errorf("raw record has no url")
	}

	tabCtx, cancel := e.browser.newTab(ctx)
	defer cancel()

	var detail pageDetail
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(e.browser.userAgent),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(extractDetailJS, &detail),
	); err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	out := harvest.RawRecord{}
	for k, v := range raw {
		out[k] = v
	}
	out["h1_title"] = detail.H1Title
	out["meta_title"] = detail.MetaTitle
	out["description"] = detail.Description
	out["apps_used"] = strings.Join(detail.Apps, ", ")

	e.logger.Debug("template extracted",
		zap.String("url", pageURL),
		zap.String("h1", detail.H1Title),
		zap.Int("apps", len(detail.Apps)),
	)
	return out, nil
}
