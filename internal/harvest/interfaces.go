package harvest

import (
	"context"
	"time"
)

// Fetcher produces the finite, ordered record set for a harvest run. For
// API-paginated platforms this pages until exhaustion or the configured
// cap; for browser-driven platforms it is the bulk listing discovery.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]RawRecord, error)
}

// Extractor performs the fallible per-record extraction and validation
// step. Browser-driven platforms fetch the detail page here; the
// orchestrator wraps Extract with the retry policy. API platforms have no
// extractor because the fetch already returned complete data.
type Extractor interface {
	Extract(ctx context.Context, raw RawRecord) (RawRecord, error)
}

// Normalizer maps one raw record to zero-or-one canonical records. It must
// be a pure function: no I/O, identical output for identical input.
type Normalizer interface {
	Normalize(raw RawRecord) []Record
}

// Sink is an append-only durable writer. Each successfully appended record
// must be durable before the next append is accepted. Close must be safe
// to call after a partial run and returns the artifact's final location.
type Sink interface {
	Open(ctx context.Context, name string) error
	Append(ctx context.Context, rec Record) error
	Close(ctx context.Context) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration, waking early if the context finishes.
// Backoff and pacing schedules are injected through it so tests never
// sleep for real.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}
