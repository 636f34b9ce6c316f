// Package report renders a diagnostic snapshot to JSON or PDF.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFilename returns report_YYYYmmdd_HHMMSS.<ext> for t.
func DefaultFilename(ext string, t time.Time) string {
	return fmt.Sprintf("report_%s.%s", t.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

// create opens path for writing, creating parent directories.
func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", path, err)
	}
	return f, nil
}

// writeFile runs render against a new file at path.
func writeFile(path string, render func(f *os.File) error) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
