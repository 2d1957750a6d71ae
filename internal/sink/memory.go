package sink

import (
	"context"
	"fmt"

	"github.com/templatelab/harvester/internal/harvest"
)

// MemorySink keeps appended records in memory. It exists for tests and
// dry runs.
type MemorySink struct {
	Records []harvest.Record

	OpenErr   error
	AppendErr func(rec harvest.Record) error
	CloseErr  error

	name   string
	opened bool
	closes int
}

// Open records the run name.
func (s *MemorySink) Open(_ context.Context, name string) error {
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.name = name
	s.opened = true
	return nil
}

// Append stores rec unless the configured failure hook rejects it.
func (s *MemorySink) Append(_ context.Context, rec harvest.Record) error {
	if !s.opened {
		return fmt.Errorf("memory sink is not open")
	}
	if s.AppendErr != nil {
		if err := s.AppendErr(rec); err != nil {
			return err
		}
	}
	s.Records = append(s.Records, rec)
	return nil
}

// Close returns a synthetic location for the stored records.
func (s *MemorySink) Close(context.Context) (string, error) {
	s.closes++
	if s.CloseErr != nil {
		return "", s.CloseErr
	}
	return "memory://" + s.name, nil
}

// Closes reports how many times Close was called.
func (s *MemorySink) Closes() int { return s.closes }
