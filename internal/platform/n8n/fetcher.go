// Package n8n harvests workflow templates from the n8n public API.
package n8n

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/harvest"
	"github.com/templatelab/harvester/internal/platform/httpfetch"
)

// Options tune the paginated search walk.
type Options struct {
	BaseURL  string
	PageSize int
	MaxPages int
}

// Fetcher pages through the n8n template search endpoint.
type Fetcher struct {
	client *httpfetch.Client
	opts   Options
	logger *zap.Logger
}

// NewFetcher builds a Fetcher on top of the shared HTTP client.
func NewFetcher(client *httpfetch.Client, opts Options, logger *zap.Logger) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.n8n.io"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, opts: opts, logger: logger}
}

type searchResponse struct {
	Workflows      []map[string]any `json:"workflows"`
	TotalWorkflows int              `json:"totalWorkflows"`
}

// FetchAll walks /templates/search page by page until a short or empty
// page, or the page cap, is reached.
func (f *Fetcher) FetchAll(ctx context.Context) ([]harvest.RawRecord, error) {
	var out []harvest.RawRecord
	for page := 1; page <= f.opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		url := fmt.Sprintf("%s/templates/search?page=%d&rows=%d", f.opts.BaseURL, page, f.opts.PageSize)
		body, status, err := f.client.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("search page %d (status %d): %w", page, status, err)
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode search page %d: %w", page, err)
		}
		if len(resp.Workflows) == 0 {
			break
		}

		for _, wf := range resp.Workflows {
			out = append(out, harvest.RawRecord(wf))
		}
		f.logger.Info("n8n page fetched",
			zap.Int("page", page),
			zap.Int("workflows", len(resp.Workflows)),
			zap.Int("collected", len(out)),
			zap.Int("reported_total", resp.TotalWorkflows),
		)
		if len(resp.Workflows) < f.opts.PageSize {
			break
		}
	}
	return out, nil
}
