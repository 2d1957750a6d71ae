package harvest

import "sync/atomic"

// Signal is the process-wide cancellation flag for a run. An external
// interrupt sets it exactly once; the orchestrator polls it cooperatively
// between records so the in-flight record always finishes before the run
// exits early.
type Signal struct {
	triggered atomic.Bool
}

// NewSignal returns an untriggered Signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Trigger marks the signal and reports whether this call was the first.
// Repeated triggers are idempotent.
func (s *Signal) Trigger() bool {
	return s.triggered.CompareAndSwap(false, true)
}

// Triggered reports whether cancellation has been requested.
func (s *Signal) Triggered() bool {
	return s.triggered.Load()
}
