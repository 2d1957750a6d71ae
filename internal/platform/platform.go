// Package platform assembles the per-platform fetch, extract, and
// normalize implementations behind a single constructor.
package platform

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/config"
	"github.com/templatelab/harvester/internal/harvest"
	"github.com/templatelab/harvester/internal/platform/httpfetch"
	"github.com/templatelab/harvester/internal/platform/makecom"
	"github.com/templatelab/harvester/internal/platform/n8n"
	"github.com/templatelab/harvester/internal/platform/zapier"
)

const defaultUserAgent = "template-harvester/1.0 (+https://github.com/templatelab/harvester)"

// Driver bundles one platform's pipeline stages. Extractor is nil for
// API platforms whose fetch already yields complete payloads.
type Driver struct {
	Fetcher    harvest.Fetcher
	Extractor  harvest.Extractor
	Normalizer harvest.Normalizer

	closer func(context.Context) error
}

// Close releases any resources the driver holds (the headless browser
// for Zapier; nothing for the API platforms).
func (d Driver) Close(ctx context.Context) error {
	if d.closer == nil {
		return nil
	}
	return d.closer(ctx)
}

// New builds the driver for the named platform.
func New(name string, cfg config.PlatformConfig, logger *zap.Logger) (Driver, error) {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	switch name {
	case "n8n":
		client, err := httpfetch.NewClient(userAgent, cfg.PageTimeout(), logger)
		if err != nil {
			return Driver{}, fmt.Errorf("n8n http client: %w", err)
		}
		return Driver{
			Fetcher: n8n.NewFetcher(client, n8n.Options{
				BaseURL:  cfg.BaseURL,
				PageSize: cfg.PageSize,
				MaxPages: cfg.MaxPages,
			}, logger),
			Normalizer: n8n.Normalizer{},
		}, nil

	case "make":
		client, err := httpfetch.NewClient(userAgent, cfg.PageTimeout(), logger)
		if err != nil {
			return Driver{}, fmt.Errorf("make http client: %w", err)
		}
		return Driver{
			Fetcher: makecom.NewFetcher(client, makecom.Options{
				BaseURL:  cfg.BaseURL,
				PageSize: cfg.PageSize,
				MaxPages: cfg.MaxPages,
			}, logger),
			Normalizer: makecom.Normalizer{},
		}, nil

	case "zapier":
		browser, err := zapier.NewBrowser(userAgent, cfg.PageTimeout(), logger)
		if err != nil {
			return Driver{}, fmt.Errorf("zapier browser: %w", err)
		}
		return Driver{
			Fetcher: zapier.NewFetcher(browser, zapier.Options{
				ListingURL: cfg.ListingURL,
			}, logger),
			Extractor:  zapier.NewExtractor(browser, logger),
			Normalizer: zapier.Normalizer{},
			closer:     browser.Close,
		}, nil

	default:
		return Driver{}, fmt.Errorf("unknown platform %q", name)
	}
}
