package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_run_processed",
		Help: "Records the current run has finished processing.",
	}, []string{"platform"})
	totalGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_run_total",
		Help: "Records discovered for the current run.",
	}, []string{"platform"})
	succeededGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_run_succeeded",
		Help: "Records durably appended to the sink in the current run.",
	}, []string{"platform"})
	failedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_run_failed",
		Help: "Records dropped for validation, normalization, or write failures.",
	}, []string{"platform"})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_progress_events_total",
		Help: "Progress events emitted, by stage.",
	}, []string{"platform", "stage"})
	runsDone = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_runs_completed_total",
		Help: "Harvest runs that reached RUN_DONE, by cancellation outcome.",
	}, []string{"platform", "cancelled"})
)

// PromReporter mirrors progress events into Prometheus collectors so a
// scrape during a long run shows live counters.
type PromReporter struct{}

// NewPromReporter returns a reporter backed by the default registry.
func NewPromReporter() *PromReporter {
	return &PromReporter{}
}

// Report updates the gauges and counters for evt.
func (r *PromReporter) Report(evt Event) {
	if err := evt.Validate(); err != nil {
		return
	}
	labels := prometheus.Labels{"platform": evt.Platform}
	processedGauge.With(labels).Set(float64(evt.Processed))
	totalGauge.With(labels).Set(float64(evt.Total))
	succeededGauge.With(labels).Set(float64(evt.Succeeded))
	failedGauge.With(labels).Set(float64(evt.Failed))
	eventsTotal.WithLabelValues(evt.Platform, string(evt.Stage)).Inc()
	if evt.Stage == StageRunDone {
		cancelled := "false"
		if evt.Cancelled {
			cancelled = "true"
		}
		runsDone.WithLabelValues(evt.Platform, cancelled).Inc()
	}
}
