package harvest

import (
	"context"
	"time"
)

// TimerSleeper implements Sleeper with a real timer that honors context
// cancellation.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx finishes, whichever comes first.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SystemClock implements Clock using the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
