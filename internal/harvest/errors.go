package harvest

import (
	"errors"
	"fmt"
)

// ErrNoRecords indicates the fetcher returned an empty record set. An
// empty listing usually means the source changed structurally, so the run
// stops hard instead of retrying.
var ErrNoRecords = errors.New("fetcher returned no records")

// ErrInvalidRecord marks an extracted record that failed validation: it
// lacks an identifying URL or any of slug / platform id / title.
var ErrInvalidRecord = errors.New("invalid or incomplete record data")

// FetchError is fatal for the run; nothing has been sequenced yet.
type FetchError struct {
	Platform string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Platform, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SinkError is fatal when raised while opening the sink; the run aborts
// before any record is processed.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// identifierKeys are the raw-record keys accepted as an identifier during
// validation, in the order they are consulted.
var identifierKeys = []string{"slug", "id", "template_id", "h1_title", "meta_title", "name", "title"}

// ValidRecord reports whether a raw record has the minimum fields to be
// worth normalizing: a non-empty URL plus at least one identifier.
func ValidRecord(raw RawRecord) bool {
	if len(raw) == 0 {
		return false
	}
	if raw.String("url") == "" {
		return false
	}
	for _, key := range identifierKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if fmt.Sprint(v) != "" {
			return true
		}
	}
	return false
}
