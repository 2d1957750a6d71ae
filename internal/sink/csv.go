package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/harvest"
)

// SchemaError reports a record carrying a field the CSV header cannot
// accommodate. The header is fixed by the first record written; later
// records must fit it.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("field %q is not part of the established csv schema", e.Field)
}

// CSVSink appends records to a CSV file, flushing after every row so a
// cancelled or crashed run still leaves a readable artifact.
type CSVSink struct {
	dir    string
	logger *zap.Logger

	path   string
	file   *os.File
	writer *csv.Writer
	header []string
	index  map[string]int
}

// NewCSVSink returns a sink that writes under dir.
func NewCSVSink(dir string, logger *zap.Logger) *CSVSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSink{dir: dir, logger: logger}
}

// Open creates the output file. The header is deferred until the first
// record so its extra columns can follow that record's field order.
func (s *CSVSink) Open(_ context.Context, name string) error {
	if s.file != nil {
		return fmt.Errorf("csv sink already open at %s", s.path)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", s.dir, err)
	}
	s.path = filepath.Join(s.dir, name+".csv")
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	s.file = file
	s.writer = csv.NewWriter(file)
	s.logger.Info("csv sink opened", zap.String("path", s.path))
	return nil
}

// Append writes one record as a CSV row and flushes it to disk. The
// first record fixes the column set: the required fields followed by
// that record's extras in their original order.
func (s *CSVSink) Append(_ context.Context, rec harvest.Record) error {
	if s.writer == nil {
		return fmt.Errorf("csv sink is not open")
	}
	if s.header == nil {
		if err := s.writeHeader(rec); err != nil {
			return err
		}
	}

	for _, key := range rec.Order {
		if _, ok := s.index[key]; !ok {
			return &SchemaError{Field: key}
		}
	}

	row := make([]string, len(s.header))
	row[s.index["platform"]] = rec.Platform
	row[s.index["platform_id"]] = rec.PlatformID
	row[s.index["name"]] = rec.Name
	row[s.index["url"]] = rec.URL
	for key, value := range rec.Fields {
		if pos, ok := s.index[key]; ok {
			row[pos] = value
		}
	}

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	return nil
}

func (s *CSVSink) writeHeader(rec harvest.Record) error {
	header := []string{"platform", "platform_id", "name", "url"}
	for _, key := range rec.Order {
		header = append(header, key)
	}
	index := make(map[string]int, len(header))
	for i, key := range header {
		index[key] = i
	}
	if err := s.writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	s.header = header
	s.index = index
	s.logger.Debug("csv header established", zap.Strings("columns", header))
	return nil
}

// Close flushes and closes the file, returning its path. Closing an
// unopened sink is a no-op.
func (s *CSVSink) Close(_ context.Context) (string, error) {
	if s.file == nil {
		return "", nil
	}
	s.writer.Flush()
	flushErr := s.writer.Error()
	if flushErr == nil {
		flushErr = s.file.Sync()
	}
	closeErr := s.file.Close()
	path := s.path
	s.file = nil
	s.writer = nil
	if flushErr != nil {
		return path, fmt.Errorf("flush %s: %w", path, flushErr)
	}
	if closeErr != nil {
		return path, fmt.Errorf("close %s: %w", path, closeErr)
	}
	return path, nil
}
