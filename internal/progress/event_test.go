package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validEvent() Event {
	return Event{
		RunID:     "0190f8a2-0000-7000-8000-000000000001",
		Platform:  "make",
		Stage:     StageSnapshot,
		TS:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Processed: 50,
		Total:     200,
		Succeeded: 48,
		Failed:    2,
		Elapsed:   100 * time.Second,
		Remaining: 300 * time.Second,
	}
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validEvent().Validate())

	cases := map[string]func(*Event){
		"missing run id":    func(e *Event) { e.RunID = "" },
		"missing platform":  func(e *Event) { e.Platform = "" },
		"missing timestamp": func(e *Event) { e.TS = time.Time{} },
		"unknown stage":     func(e *Event) { e.Stage = "HALFWAY" },
		"negative counter":  func(e *Event) { e.Processed = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			evt := validEvent()
			mutate(&evt)
			require.Error(t, evt.Validate())
		})
	}
}

func TestEvent_DerivedRates(t *testing.T) {
	t.Parallel()

	evt := validEvent()
	require.InDelta(t, 96.0, evt.SuccessRate(), 0.001)
	require.InDelta(t, 25.0, evt.PercentComplete(), 0.001)
	require.Equal(t, 2*time.Second, evt.AveragePerRecord())
}

func TestEvent_DerivedRatesZeroSafe(t *testing.T) {
	t.Parallel()

	var evt Event
	require.Zero(t, evt.SuccessRate())
	require.Zero(t, evt.PercentComplete())
	require.Zero(t, evt.AveragePerRecord())
}

type countingReporter struct{ n int }

func (r *countingReporter) Report(Event) { r.n++ }

func TestMultiReporter_FansOutAndSkipsNil(t *testing.T) {
	t.Parallel()

	a := &countingReporter{}
	b := &countingReporter{}
	multi := MultiReporter{a, nil, b}

	multi.Report(validEvent())
	multi.Report(validEvent())

	require.Equal(t, 2, a.n)
	require.Equal(t, 2, b.n)
}

func TestLogReporter_DropsInvalidEvents(t *testing.T) {
	t.Parallel()

	reporter := NewLogReporter(nil)

	// Must not panic on any stage or on garbage input.
	reporter.Report(Event{})
	for _, stage := range []Stage{StageRunStart, StageSnapshot, StageRunDone} {
		evt := validEvent()
		evt.Stage = stage
		reporter.Report(evt)
	}
}
