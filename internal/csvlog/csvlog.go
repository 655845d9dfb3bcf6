// Package csvlog is the durable, append-only record of accepted samples.
//
// The file is plain CSV:
//
//	timestamp,reading,actuator_on
//	2026-01-01T12:00:00.500000,412,1
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sweeney/air-quality/internal/logic"
)

// TimeLayout is the ISO-8601 local timestamp written in each record.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Header is the first record of every log file.
var Header = []string{"timestamp", "reading", "actuator_on"}

// Logger appends sample records to one CSV file.
type Logger struct {
	file   *os.File
	writer *csv.Writer
}

// Open opens path for appending, creating it if needed. The header is
// written only when the file is empty, so reopening an existing log never
// duplicates it.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log: %w", err)
	}

	l := &Logger{file: f, writer: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.commit(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return l, nil
}

// Append writes one record for s taken at wall-clock time at. The record is
// flushed and synced before Append returns.
func (l *Logger) Append(s logic.Sample, at time.Time) error {
	fan := "0"
	if s.FanOn {
		fan = "1"
	}
	return l.commit([]string{at.Format(TimeLayout), strconv.Itoa(s.Reading), fan})
}

func (l *Logger) commit(record []string) error {
	if l.file == nil {
		return os.ErrClosed
	}
	if err := l.writer.Write(record); err != nil {
		return err
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close flushes and closes the file. Calling Close twice is a no-op.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.writer.Flush()
	err := l.file.Close()
	l.file = nil
	return err
}

// Clear truncates the log at path down to just the header.
func Clear(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Record is one parsed data row.
type Record struct {
	Time    time.Time
	Reading int
	FanOn   bool
}

// ReadFile parses every data record in the log at path, skipping the header.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var records []Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == Header[0] {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 fields, got %d", i, len(row))
		}
		ts, err := time.ParseInLocation(TimeLayout, row[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		reading, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, Record{Time: ts, Reading: reading, FanOn: row[2] == "1"})
	}
	return records, nil
}
