package progress

import (
	"go.uber.org/zap"
)

// LogReporter renders progress events as structured logs.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter wires a zap logger to the Reporter interface.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Report logs one event. Invalid events are dropped at debug level so a
// misbehaving emitter cannot pollute the run log.
func (r *LogReporter) Report(evt Event) {
	if err := evt.Validate(); err != nil {
		r.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("platform", evt.Platform),
		zap.Int("processed", evt.Processed),
		zap.Int("total", evt.Total),
		zap.Int("succeeded", evt.Succeeded),
		zap.Int("failed", evt.Failed),
		zap.Int("skipped", evt.Skipped),
		zap.Duration("elapsed", evt.Elapsed),
	}

	switch evt.Stage {
	case StageRunStart:
		r.logger.Info("harvest run started", fields...)
	case StageSnapshot:
		fields = append(fields,
			zap.Float64("percent_complete", evt.PercentComplete()),
			zap.Float64("success_rate", evt.SuccessRate()),
			zap.Duration("avg_per_record", evt.AveragePerRecord()),
			zap.Duration("remaining", evt.Remaining),
		)
		r.logger.Info("harvest progress", fields...)
	case StageRunDone:
		fields = append(fields,
			zap.Float64("success_rate", evt.SuccessRate()),
			zap.Duration("avg_per_record", evt.AveragePerRecord()),
			zap.String("artifact", evt.Artifact),
			zap.Bool("cancelled", evt.Cancelled),
		)
		r.logger.Info("harvest run finished", fields...)
	}
}
