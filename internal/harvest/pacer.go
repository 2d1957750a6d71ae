package harvest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pacer enforces fixed-interval spacing between records: a standard delay
// after every record, and a longer batch pause instead once a full batch
// has been processed. The two pauses are mutually exclusive for a given
// index. Spacing is fixed, not adaptive to observed source latency.
type Pacer struct {
	batchSize   int
	batchDelay  time.Duration
	recordDelay time.Duration
	sleeper     Sleeper
	logger      *zap.Logger
}

// NewPacer builds a Pacer. A nil sleeper falls back to a real timer.
func NewPacer(batchSize int, batchDelay, recordDelay time.Duration, sleeper Sleeper, logger *zap.Logger) Pacer {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return Pacer{
		batchSize:   batchSize,
		batchDelay:  batchDelay,
		recordDelay: recordDelay,
		sleeper:     sleeper,
		logger:      logger,
	}
}

// Wait blocks for the delay owed after processing record index (1-based)
// out of total.
func (p Pacer) Wait(ctx context.Context, index, total int) {
	delay, batch := p.DelayFor(index, total)
	if delay <= 0 {
		return
	}
	if batch {
		batchPauses.Inc()
		p.logger.Info("batch pause to respect rate limits",
			zap.Int("index", index),
			zap.Duration("delay", delay),
		)
	}
	p.sleeper.Sleep(ctx, delay)
}

// DelayFor returns the delay owed after record index and whether it is the
// batch pause. The batch pause applies when index is a multiple of the
// batch size and more records remain.
func (p Pacer) DelayFor(index, total int) (time.Duration, bool) {
	if p.batchSize > 0 && index%p.batchSize == 0 && index < total {
		return p.batchDelay, true
	}
	return p.recordDelay, false
}
