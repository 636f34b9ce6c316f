package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"smartobd/internal/models"
)

// WriteJSON encodes snap with a two space indent.
func WriteJSON(w io.Writer, snap models.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// ReadJSON decodes a snapshot written by WriteJSON.
func ReadJSON(r io.Reader) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("report: decode json: %w", err)
	}
	if snap.DTCs == nil {
		snap.DTCs = []models.DTCEntry{}
	}
	return snap, nil
}

// ExportJSON writes snap to path.
func ExportJSON(path string, snap models.Snapshot) error {
	return writeFile(path, func(f *os.File) error {
		return WriteJSON(f, snap)
	})
}
