package harvest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RawRecord is an opaque, platform-specific payload produced by a Fetcher.
// It is consumed by extraction/normalization and never persisted directly.
type RawRecord map[string]any

// String returns the value under key as a string, or "" when absent or of
// another type.
func (r RawRecord) String(key string) string {
	if r == nil {
		return ""
	}
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Text returns the value under key rendered as a flat string. Numbers
// keep their decimal form (no exponent notation), booleans become
// true/false, and absent or null values become "".
func (r RawRecord) Text(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Record is the normalized, platform-agnostic output row.
type Record struct {
	Platform   string
	PlatformID string
	Name       string
	URL        string

	// Fields holds platform-specific optional attributes keyed by column
	// name. Order fixes the column order extras appear in; keys missing
	// from Order are ignored by sinks that need deterministic layout.
	Fields map[string]string
	Order  []string
}

// Valid reports whether the record carries every required field.
func (r Record) Valid() bool {
	return r.Platform != "" && r.PlatformID != "" && r.Name != "" && r.URL != ""
}

// RunConfig captures the limits for one harvest run. It is built once from
// configuration at process start and never mutated afterwards.
type RunConfig struct {
	Platform       string
	BatchSize      int
	BatchDelay     time.Duration
	RateLimitDelay time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MaxRecords     int
	ProgressEvery  int
}
