package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes which milestone of a harvest run an Event represents.
type Stage string

// Supported stages.
const (
	StageRunStart Stage = "RUN_START"
	StageSnapshot Stage = "SNAPSHOT"
	StageRunDone  Stage = "RUN_DONE"
)

// Event is one progress snapshot of a harvest run.
type Event struct {
	// RunID uniquely identifies the run (UUIDv7 string).
	RunID string
	// Platform is the source platform being harvested.
	Platform string
	// Stage marks which milestone the event represents.
	Stage Stage
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time

	// Processed counts records the loop has finished with (1-based index
	// of the most recent record).
	Processed int
	// Total is the number of records discovered for the run.
	Total int
	// Succeeded, Failed, and Skipped are the run counters at snapshot time.
	Succeeded int
	Failed    int
	Skipped   int

	// Elapsed is the time since run start; Remaining is the ETA derived
	// from the average time per processed record.
	Elapsed   time.Duration
	Remaining time.Duration

	// Artifact is the sink's final location, set on RUN_DONE.
	Artifact string
	// Cancelled marks a run that stopped early on operator request.
	Cancelled bool
}

// Validate performs coarse validation of an Event.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.Platform == "" {
		return errors.New("platform is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageSnapshot, StageRunDone:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Processed < 0 || e.Total < 0 {
		return errors.New("counters must be >= 0")
	}
	return nil
}

// SuccessRate returns the success percentage over processed records.
func (e Event) SuccessRate() float64 {
	if e.Processed == 0 {
		return 0
	}
	return float64(e.Succeeded) / float64(e.Processed) * 100
}

// PercentComplete returns how far through the record set the run is.
func (e Event) PercentComplete() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Processed) / float64(e.Total) * 100
}

// AveragePerRecord returns the mean processing time per record so far.
func (e Event) AveragePerRecord() time.Duration {
	if e.Processed == 0 {
		return 0
	}
	return e.Elapsed / time.Duration(e.Processed)
}
