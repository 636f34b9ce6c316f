// Package csvlog writes live samples as CSV rows and reads them back.
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"smartobd/internal/sampler"
)

// TimeColumn is the name of the elapsed seconds column.
const TimeColumn = "t"

// Writer records samples under a header fixed at creation. Every row is
// flushed as soon as it is written.
type Writer struct {
	w      *csv.Writer
	file   *os.File
	fields []string
	rows   int
}

// NewWriter writes the header to w immediately.
func NewWriter(w io.Writer, fields []string) (*Writer, error) {
	if len(fields) == 0 {
		return nil, errors.New("csvlog: no fields")
	}
	cw := &Writer{
		w:      csv.NewWriter(w),
		fields: append([]string(nil), fields...),
	}
	header := append([]string{TimeColumn}, cw.fields...)
	if err := cw.w.Write(header); err != nil {
		return nil, fmt.Errorf("csvlog: write header: %w", err)
	}
	cw.w.Flush()
	return cw, cw.w.Error()
}

// Create opens path for writing, creating parent directories, and writes
// the header.
func Create(path string, fields []string) (*Writer, error) {
	if len(fields) == 0 {
		return nil, errors.New("csvlog: no fields")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("csvlog: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvlog: create %s: %w", path, err)
	}
	w, err := NewWriter(f, fields)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// Write appends one row: elapsed seconds with three decimals, then the
// value of each header field. Absent values are empty cells.
func (w *Writer) Write(s sampler.Sample) error {
	row := make([]string, 0, len(w.fields)+1)
	row = append(row, strconv.FormatFloat(s.Elapsed, 'f', 3, 64))
	for _, f := range w.fields {
		row = append(row, s.Value(f).String())
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("csvlog: write row: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("csvlog: flush: %w", err)
	}
	w.rows++
	return nil
}

// Rows reports how many samples were written.
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes and closes the underlying file, if Create opened one.
func (w *Writer) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	return err
}

// Log holds a parsed log file.
type Log struct {
	Fields []string
	Rows   []Row
}

// Row is one parsed line. A nil entry in Values is an empty cell.
type Row struct {
	T      float64
	Values []*float64
	Raw    []string
}

// Read parses a log written by Writer.
func Read(r io.Reader) (*Log, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvlog: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csvlog: missing header")
	}
	header := records[0]
	if len(header) == 0 || header[0] != TimeColumn {
		return nil, fmt.Errorf("csvlog: header must start with %q, got %v", TimeColumn, header)
	}

	l := &Log{Fields: header[1:]}
	for i, rec := range records[1:] {
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("csvlog: row %d: bad time %q", i+1, rec[0])
		}
		row := Row{T: t, Raw: rec[1:], Values: make([]*float64, len(rec)-1)}
		for j, cell := range rec[1:] {
			if cell == "" {
				continue
			}
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				row.Values[j] = &v
			}
		}
		l.Rows = append(l.Rows, row)
	}
	return l, nil
}

// ReadFile parses the log at path.
func ReadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
