package harvest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy wraps a fallible unit of work with bounded exponential
// backoff. Every failure is retried uniformly up to the limit; the policy
// deliberately does not classify error kinds because transient network and
// render failures dominate a scraping workload.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	sleeper    Sleeper
	logger     *zap.Logger
}

// NewRetryPolicy builds a policy. maxRetries below 1 is clamped so the
// operation always runs at least once. A nil sleeper falls back to a real
// timer.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration, sleeper Sleeper, logger *zap.Logger) RetryPolicy {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return RetryPolicy{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleeper:    sleeper,
		logger:     logger,
	}
}

// Do runs op up to maxRetries times, sleeping baseDelay * 2^(attempt-1)
// between attempts. It returns nil on the first success, otherwise the
// last error once attempts are exhausted or the context finishes.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.maxRetries {
			break
		}
		if ctx.Err() != nil {
			break
		}
		wait := p.Backoff(attempt)
		retryAttempts.Inc()
		p.logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.maxRetries),
			zap.Duration("wait", wait),
			zap.Error(lastErr),
		)
		p.sleeper.Sleep(ctx, wait)
	}
	return lastErr
}

// Backoff returns the wait before the attempt following attempt (1-based):
// baseDelay doubled once per completed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.baseDelay << (attempt - 1)
}
