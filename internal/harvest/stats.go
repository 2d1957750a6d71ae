package harvest

import (
	"time"

	"github.com/templatelab/harvester/internal/progress"
)

// Stats tracks the counters for one harvest run. It is owned exclusively
// by the orchestrator's single-threaded loop; no locking is required.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	StartedAt time.Time
}

// Processed returns how many records have reached a terminal outcome.
func (s Stats) Processed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// snapshot builds a progress event for the record at index (1-based).
func (s Stats) snapshot(runID, platform string, stage progress.Stage, index int, now time.Time) progress.Event {
	elapsed := now.Sub(s.StartedAt)
	var remaining time.Duration
	if index > 0 && s.Total > index {
		remaining = time.Duration(s.Total-index) * (elapsed / time.Duration(index))
	}
	return progress.Event{
		RunID:     runID,
		Platform:  platform,
		Stage:     stage,
		TS:        now,
		Processed: index,
		Total:     s.Total,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Elapsed:   elapsed,
		Remaining: remaining,
	}
}
