// Package zapier harvests workflow templates from zapier.com, which has
// no public listing API and is rendered client-side, so discovery and
// extraction both run through headless Chrome.
package zapier

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Browser owns one headless Chrome process shared by the listing walk
// and the per-template extraction tabs.
type Browser struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	timeout         time.Duration
	userAgent       string
	logger          *zap.Logger
}

// NewBrowser launches headless Chrome and warms it up. The returned
// Browser must be Closed to reap the process.
func NewBrowser(userAgent string, timeout time.Duration, logger *zap.Logger) (*Browser, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(userAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		timeout:         timeout,
		userAgent:       userAgent,
		logger:          logger,
	}, nil
}

// newTab opens a fresh tab with the page timeout applied. The parent
// cancellation is forwarded so an interrupted run abandons navigation.
func (b *Browser) newTab(parent context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.timeout)
	stopForward := forwardCancel(parent, cancelTask)
	return taskCtx, func() {
		stopForward()
		cancelTask()
		cancelTab()
	}
}

// Close tears down the chromedp allocator and browser contexts.
func (b *Browser) Close(context.Context) error {
	if b == nil {
		return nil
	}
	b.browserCancel()
	b.allocatorCancel()
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
