package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/progress"
)

// Params carries everything an Orchestrator needs for one run.
type Params struct {
	Config     RunConfig
	RunID      string
	Fetcher    Fetcher
	Extractor  Extractor // nil for API platforms; the fetch is already complete
	Normalizer Normalizer
	Sink       Sink
	Signal     *Signal
	Reporter   progress.Reporter
	Clock      Clock
	Sleeper    Sleeper
	Logger     *zap.Logger
}

// Orchestrator sequences one harvest run: fetch, then an ordered
// single-threaded loop of retry-wrapped extraction, normalization, and
// durable append, with cooperative cancellation and fixed-interval pacing.
type Orchestrator struct {
	cfg        RunConfig
	runID      string
	fetcher    Fetcher
	extractor  Extractor
	normalizer Normalizer
	sink       Sink
	signal     *Signal
	reporter   progress.Reporter
	clock      Clock
	retry      RetryPolicy
	pacer      Pacer
	logger     *zap.Logger
}

// New constructs an Orchestrator, filling in defaults for optional
// collaborators.
func New(p Params) *Orchestrator {
	if p.Signal == nil {
		p.Signal = NewSignal()
	}
	if p.Clock == nil {
		p.Clock = SystemClock{}
	}
	if p.Sleeper == nil {
		p.Sleeper = TimerSleeper{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        p.Config,
		runID:      p.RunID,
		fetcher:    p.Fetcher,
		extractor:  p.Extractor,
		normalizer: p.Normalizer,
		sink:       p.Sink,
		signal:     p.Signal,
		reporter:   p.Reporter,
		clock:      p.Clock,
		retry:      NewRetryPolicy(p.Config.MaxRetries, p.Config.RetryDelay, p.Sleeper, p.Logger),
		pacer:      NewPacer(p.Config.BatchSize, p.Config.BatchDelay, p.Config.RateLimitDelay, p.Sleeper, p.Logger),
		logger:     p.Logger,
	}
}

// Run executes the harvest. Fetch and sink-open failures are fatal and
// returned; per-record failures are counted and the loop continues. The
// sink is closed on every exit path, so a partially-written artifact is
// always valid, and the final statistics are always reported.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	stats := Stats{StartedAt: o.clock.Now()}

	o.logger.Info("fetching record set",
		zap.String("run_id", o.runID),
		zap.String("platform", o.cfg.Platform),
	)
	records, err := o.fetcher.FetchAll(ctx)
	if err != nil {
		return stats, &FetchError{Platform: o.cfg.Platform, Err: err}
	}
	if len(records) == 0 {
		return stats, &FetchError{Platform: o.cfg.Platform, Err: ErrNoRecords}
	}
	if o.cfg.MaxRecords > 0 && len(records) > o.cfg.MaxRecords {
		o.logger.Warn("record cap applied",
			zap.Int("discovered", len(records)),
			zap.Int("cap", o.cfg.MaxRecords),
		)
		records = records[:o.cfg.MaxRecords]
	}
	stats.Total = len(records)
	o.logger.Info("record set ready", zap.Int("total", stats.Total))

	name := fmt.Sprintf("%s_templates_%s", o.cfg.Platform, stats.StartedAt.Format("20060102_150405"))
	if err := o.sink.Open(ctx, name); err != nil {
		return stats, &SinkError{Op: "open", Err: err}
	}

	// Close must run even when the loop exits via panic; a second close on
	// the normal path is suppressed by the flag.
	closed := false
	defer func() {
		if !closed {
			o.closeSink(ctx)
		}
	}()

	o.report(stats.snapshot(o.runID, o.cfg.Platform, progress.StageRunStart, 0, o.clock.Now()))

	processed := 0
	cancelled := false
	for i, raw := range records {
		if o.signal.Triggered() {
			cancelled = true
			o.logger.Warn("cancellation requested, stopping with committed work preserved",
				zap.Int("processed", processed),
				zap.Int("total", stats.Total),
			)
			break
		}
		index := i + 1
		o.processRecord(ctx, index, raw, &stats)
		processed = index

		if o.cfg.ProgressEvery > 0 && index%o.cfg.ProgressEvery == 0 {
			o.report(stats.snapshot(o.runID, o.cfg.Platform, progress.StageSnapshot, index, o.clock.Now()))
		}
	}

	closed = true
	artifact := o.closeSink(ctx)

	final := stats.snapshot(o.runID, o.cfg.Platform, progress.StageRunDone, processed, o.clock.Now())
	final.Artifact = artifact
	final.Cancelled = cancelled
	o.report(final)

	return stats, nil
}

func (o *Orchestrator) processRecord(ctx context.Context, index int, raw RawRecord, stats *Stats) {
	if len(raw) == 0 {
		stats.Skipped++
		o.logger.Warn("empty raw record skipped", zap.Int("index", index))
		return
	}

	extracted := raw
	if o.extractor != nil {
		err := o.retry.Do(ctx, func(ctx context.Context) error {
			out, exErr := o.extractor.Extract(ctx, raw)
			if exErr != nil {
				return exErr
			}
			if !ValidRecord(out) {
				return ErrInvalidRecord
			}
			extracted = out
			return nil
		})
		if err != nil {
			stats.Failed++
			o.logger.Error("extraction failed after retries",
				zap.Int("index", index),
				zap.String("url", raw.String("url")),
				zap.Error(err),
			)
			return
		}
	}

	// Normalization is pure and deterministic, so it is never retried.
	recs := o.normalizer.Normalize(extracted)
	if len(recs) == 0 {
		stats.Failed++
		o.logger.Error("normalization produced no record", zap.Int("index", index))
		return
	}
	rec := recs[0]
	if !rec.Valid() {
		stats.Failed++
		o.logger.Error("normalized record missing required fields",
			zap.Int("index", index),
			zap.String("platform_id", rec.PlatformID),
		)
		return
	}

	if err := o.sink.Append(ctx, rec); err != nil {
		stats.Failed++
		o.logger.Error("sink append failed",
			zap.Int("index", index),
			zap.String("platform_id", rec.PlatformID),
			zap.Error(err),
		)
		return
	}
	stats.Succeeded++
	o.logger.Debug("record written",
		zap.Int("index", index),
		zap.Int("total", stats.Total),
		zap.String("name", rec.Name),
	)

	o.pacer.Wait(ctx, index, stats.Total)
}

func (o *Orchestrator) closeSink(ctx context.Context) string {
	location, err := o.sink.Close(ctx)
	if err != nil {
		// Counters recorded per record stand; a close failure only affects
		// the reported artifact location.
		o.logger.Warn("sink close failed", zap.Error(err))
		return ""
	}
	o.logger.Info("sink closed", zap.String("artifact", location))
	return location
}

func (o *Orchestrator) report(evt progress.Event) {
	if o.reporter == nil {
		return
	}
	o.reporter.Report(evt)
}
