// Package httpfetch wraps a Colly collector behind a small JSON-friendly
// GET client used by the API-driven platform fetchers.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Client issues single GET requests through a configured Colly collector.
type Client struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewClient constructs a client with sane transport limits.
func NewClient(userAgent string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []colly.CollectorOption{
		colly.UserAgent(userAgent),
	}
	base := colly.NewCollector(opts...)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)

	return &Client{
		baseCollector: base,
		logger:        logger,
	}, nil
}

type getResult struct {
	body   []byte
	status int
	err    error
}

// Get retrieves the URL and returns the response body and status code.
// Non-2xx responses are returned as errors.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, int, error) {
	collector := c.baseCollector.Clone()
	resultCh := make(chan getResult, 1)
	var once sync.Once
	send := func(res getResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(getResult{
			body:   append([]byte{}, r.Body...),
			status: r.StatusCode,
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(getResult{status: status, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, 0, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if res.err != nil {
			return nil, res.status, fmt.Errorf("get %s: %w", rawURL, res.err)
		}
		c.logger.Debug("fetched page",
			zap.String("url", rawURL),
			zap.Int("status", res.status),
			zap.Int("bytes", len(res.body)),
		)
		return res.body, res.status, nil
	default:
		return nil, 0, errors.New("colly fetch produced no result")
	}
}
