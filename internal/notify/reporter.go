package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/progress"
)

// Reporter adapts Publisher to the progress reporter chain. Only
// terminal events are published; snapshots stay local.
type Reporter struct {
	pub    *Publisher
	logger *zap.Logger
}

// NewReporter wraps pub as a progress reporter.
func NewReporter(pub *Publisher, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{pub: pub, logger: logger}
}

// Report publishes RUN_DONE events. Publish failures are logged and
// swallowed so a broken broker cannot fail a finished harvest.
func (r *Reporter) Report(evt progress.Event) {
	if evt.Stage != progress.StageRunDone {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := r.pub.RunSummary(ctx, evt)
	if err != nil {
		r.logger.Warn("run summary publish failed", zap.Error(err))
		return
	}
	r.logger.Info("run summary published", zap.String("message_id", id))
}
