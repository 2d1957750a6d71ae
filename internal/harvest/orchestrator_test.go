package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/templatelab/harvester/internal/progress"
)

type fakeFetcher struct {
	records []RawRecord
	err     error
}

func (f *fakeFetcher) FetchAll(context.Context) ([]RawRecord, error) {
	return f.records, f.err
}

type fakeExtractor struct {
	calls   int
	failFor map[string]int // url -> number of failing attempts before success
	err     error
}

func (f *fakeExtractor) Extract(_ context.Context, raw RawRecord) (RawRecord, error) {
	f.calls++
	url := raw.String("url")
	if n, ok := f.failFor[url]; ok && n > 0 {
		f.failFor[url] = n - 1
		return nil, errors.New("page load failed")
	}
	if f.err != nil {
		return nil, f.err
	}
	out := RawRecord{}
	for k, v := range raw {
		out[k] = v
	}
	out["h1_title"] = "Extracted " + url
	return out, nil
}

type passNormalizer struct{}

func (passNormalizer) Normalize(raw RawRecord) []Record {
	url := raw.String("url")
	if url == "" {
		return nil
	}
	name := raw.String("h1_title")
	if name == "" {
		name = raw.String("name")
	}
	return []Record{{
		Platform:   "test",
		PlatformID: raw.String("slug"),
		Name:       name,
		URL:        url,
	}}
}

type emptyNormalizer struct{}

func (emptyNormalizer) Normalize(RawRecord) []Record { return nil }

type fakeSink struct {
	opened    bool
	openName  string
	openErr   error
	appendErr map[string]error // platform_id -> error
	closed    int
	closeErr  error
	records   []Record
}

func (s *fakeSink) Open(_ context.Context, name string) error {
	s.opened = true
	s.openName = name
	return s.openErr
}

func (s *fakeSink) Append(_ context.Context, rec Record) error {
	if err, ok := s.appendErr[rec.PlatformID]; ok {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) Close(context.Context) (string, error) {
	s.closed++
	return "/tmp/" + s.openName + ".csv", s.closeErr
}

type collectingReporter struct {
	events []progress.Event
}

func (r *collectingReporter) Report(evt progress.Event) {
	r.events = append(r.events, evt)
}

// fakeClock advances a fixed step on every Now call so elapsed times are
// deterministic.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func rawRecords(n int) []RawRecord {
	records := make([]RawRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, RawRecord{
			"url":  fmt.Sprintf("https://example.com/templates/t-%d", i),
			"slug": fmt.Sprintf("t-%d", i),
			"name": fmt.Sprintf("Template %d", i),
		})
	}
	return records
}

func newTestParams(fetcher Fetcher, sink Sink) Params {
	return Params{
		Config: RunConfig{
			Platform:       "test",
			BatchSize:      50,
			BatchDelay:     10 * time.Second,
			RateLimitDelay: 3 * time.Second,
			MaxRetries:     3,
			RetryDelay:     5 * time.Second,
			ProgressEvery:  10,
		},
		RunID:      "run-test",
		Fetcher:    fetcher,
		Normalizer: passNormalizer{},
		Sink:       sink,
		Sleeper:    &recordingSleeper{},
		Clock:      &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step: time.Second},
	}
}

func TestOrchestrator_HappyPathWritesEveryRecord(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(4)}, sink)
	reporter := &collectingReporter{}
	p.Reporter = reporter

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 4, stats.Succeeded)
	require.Zero(t, stats.Failed)
	require.Zero(t, stats.Skipped)
	require.Len(t, sink.records, 4)
	require.Equal(t, 1, sink.closed)
	require.Contains(t, sink.openName, "test_templates_")

	require.GreaterOrEqual(t, len(reporter.events), 2)
	first := reporter.events[0]
	last := reporter.events[len(reporter.events)-1]
	require.Equal(t, progress.StageRunStart, first.Stage)
	require.Equal(t, progress.StageRunDone, last.Stage)
	require.Equal(t, 4, last.Processed)
	require.False(t, last.Cancelled)
	require.NotEmpty(t, last.Artifact)
}

func TestOrchestrator_FetchFailureIsFatalAndSinkNeverOpened(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{err: errors.New("upstream down")}, sink)

	_, err := New(p).Run(context.Background())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "test", fe.Platform)
	require.False(t, sink.opened)
}

func TestOrchestrator_ZeroRecordsIsFatal(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: nil}, sink)

	_, err := New(p).Run(context.Background())

	require.ErrorIs(t, err, ErrNoRecords)
	require.False(t, sink.opened)
}

func TestOrchestrator_SinkOpenFailureIsFatal(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{openErr: errors.New("disk full")}
	p := newTestParams(&fakeFetcher{records: rawRecords(3)}, sink)

	_, err := New(p).Run(context.Background())

	var se *SinkError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "open", se.Op)
	require.Zero(t, sink.closed)
}

func TestOrchestrator_AppendFailureIsCountedNotFatal(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{appendErr: map[string]error{"t-2": errors.New("write failed")}}
	p := newTestParams(&fakeFetcher{records: rawRecords(3)}, sink)

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, stats.Succeeded)
	require.Equal(t, 1, stats.Failed)
	require.Len(t, sink.records, 2)
	require.Equal(t, 1, sink.closed)
}

func TestOrchestrator_CancellationPreservesCommittedWork(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(10)}, sink)
	sig := NewSignal()
	p.Signal = sig
	reporter := &collectingReporter{}
	p.Reporter = reporter

	// Trigger mid-run: the sink flips the signal after the fifth append.
	p.Sink = &triggerAfterSink{fakeSink: sink, sig: sig, after: 5}

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 10, stats.Total)
	require.Equal(t, 5, stats.Succeeded)
	require.Zero(t, stats.Failed)
	require.Len(t, sink.records, 5)
	require.Equal(t, "t-5", sink.records[4].PlatformID)
	require.Equal(t, 1, sink.closed)

	last := reporter.events[len(reporter.events)-1]
	require.Equal(t, progress.StageRunDone, last.Stage)
	require.True(t, last.Cancelled)
	require.Equal(t, 5, last.Processed)
}

type triggerAfterSink struct {
	*fakeSink
	sig   *Signal
	after int
}

func (s *triggerAfterSink) Append(ctx context.Context, rec Record) error {
	err := s.fakeSink.Append(ctx, rec)
	if len(s.fakeSink.records) >= s.after {
		s.sig.Trigger()
	}
	return err
}

func TestOrchestrator_ExtractorRetriedThenSucceeds(t *testing.T) {
	t.Parallel()

	records := rawRecords(2)
	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: records}, sink)
	extractor := &fakeExtractor{failFor: map[string]int{records[0].String("url"): 2}}
	p.Extractor = extractor

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, stats.Succeeded)
	require.Zero(t, stats.Failed)
	// Record one needed three attempts, record two succeeded immediately.
	require.Equal(t, 4, extractor.calls)
}

func TestOrchestrator_ExtractorExhaustionCountsAsFailure(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(2)}, sink)
	p.Extractor = &fakeExtractor{err: errors.New("always broken")}

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Zero(t, stats.Succeeded)
	require.Equal(t, 2, stats.Failed)
	require.Empty(t, sink.records)
	require.Equal(t, 1, sink.closed)
}

func TestOrchestrator_EmptyNormalizationCountsAsFailureAndContinues(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(3)}, sink)
	p.Normalizer = emptyNormalizer{}

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 3, stats.Failed)
	require.Zero(t, stats.Succeeded)
	require.Equal(t, 1, sink.closed)
}

func TestOrchestrator_EmptyRawRecordIsSkipped(t *testing.T) {
	t.Parallel()

	records := rawRecords(2)
	records = append(records, RawRecord{})
	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: records}, sink)

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, stats.Succeeded)
	require.Equal(t, 1, stats.Skipped)
	require.Zero(t, stats.Failed)
}

func TestOrchestrator_MaxRecordsTruncates(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(20)}, sink)
	p.Config.MaxRecords = 5

	stats, err := New(p).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, 5, stats.Succeeded)
	require.Len(t, sink.records, 5)
}

func TestOrchestrator_PacerSkippedOnFailure(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	sink := &fakeSink{appendErr: map[string]error{"t-1": errors.New("rejected")}}
	p := newTestParams(&fakeFetcher{records: rawRecords(2)}, sink)
	p.Sleeper = sleeper

	_, err := New(p).Run(context.Background())

	require.NoError(t, err)
	// Only the successful second record paid the rate-limit delay.
	require.Equal(t, []time.Duration{3 * time.Second}, sleeper.sleeps)
}

func TestOrchestrator_ProgressSnapshotsEveryN(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	p := newTestParams(&fakeFetcher{records: rawRecords(25)}, sink)
	p.Config.ProgressEvery = 10
	reporter := &collectingReporter{}
	p.Reporter = reporter

	_, err := New(p).Run(context.Background())
	require.NoError(t, err)

	var snapshots []progress.Event
	for _, evt := range reporter.events {
		if evt.Stage == progress.StageSnapshot {
			snapshots = append(snapshots, evt)
		}
	}
	require.Len(t, snapshots, 2)
	require.Equal(t, 10, snapshots[0].Processed)
	require.Equal(t, 20, snapshots[1].Processed)
}
