// Package makecom harvests scenario templates from the Make public API.
package makecom

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/harvest"
	"github.com/templatelab/harvester/internal/platform/httpfetch"
)

// Options tune the offset-paginated template walk.
type Options struct {
	BaseURL  string
	PageSize int
	MaxPages int
}

// Fetcher pages through the public templates endpoint using offset
// pagination.
type Fetcher struct {
	client *httpfetch.Client
	opts   Options
	logger *zap.Logger
}

// NewFetcher builds a Fetcher on top of the shared HTTP client.
func NewFetcher(client *httpfetch.Client, opts Options, logger *zap.Logger) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.make.com"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, opts: opts, logger: logger}
}

type templatesResponse struct {
	Templates []map[string]any `json:"templates"`
}

// FetchAll walks the public template list until a short or empty page,
// or the page cap, is reached.
func (f *Fetcher) FetchAll(ctx context.Context) ([]harvest.RawRecord, error) {
	var out []harvest.RawRecord
	for page := 0; page < f.opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset := page * f.opts.PageSize
		url := fmt.Sprintf("%s/api/v2/templates/public?pg[offset]=%d&pg[limit]=%d",
			f.opts.BaseURL, offset, f.opts.PageSize)
		body, status, err := f.client.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("templates offset %d (status %d): %w", offset, status, err)
		}

		var resp templatesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode templates offset %d: %w", offset, err)
		}
		if len(resp.Templates) == 0 {
			break
		}

		for _, tpl := range resp.Templates {
			out = append(out, harvest.RawRecord(tpl))
		}
		f.logger.Info("make page fetched",
			zap.Int("offset", offset),
			zap.Int("templates", len(resp.Templates)),
			zap.Int("collected", len(out)),
		)
		if len(resp.Templates) < f.opts.PageSize {
			break
		}
	}
	return out, nil
}
