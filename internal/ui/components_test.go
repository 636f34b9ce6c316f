package ui

import (
	"strings"
	"testing"

	"smartobd/internal/models"
	"smartobd/internal/obd"
)

func TestReading(t *testing.T) {
	v := 12.5
	if got := Reading("Voltage", &v, "V"); !strings.Contains(got, "12.5 V") {
		t.Errorf("expected 12.5 V, got=%q", got)
	}
	w := 800.0
	if got := Reading("RPM", &w, ""); !strings.Contains(got, "800") || strings.Contains(got, "800.") {
		t.Errorf("expected 800, got=%q", got)
	}
	if got := Reading("Speed", nil, "km/h"); !strings.Contains(got, NotAvailable) {
		t.Errorf("expected %q, got=%q", NotAvailable, got)
	}
}

func TestDTCList(t *testing.T) {
	if got := DTCList(nil); !strings.Contains(got, "No stored trouble codes") {
		t.Errorf("expected placeholder, got=%q", got)
	}
	got := DTCList([]models.DTCEntry{
		{Code: "P0301", Description: "Cylinder 1 Misfire Detected"},
		{Code: "C0035", Description: "Left Front Wheel Speed Sensor Circuit"},
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got=%q", got)
	}
	if !strings.Contains(lines[0], "P0301") || !strings.Contains(lines[0], "Misfire") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestStatusLine(t *testing.T) {
	got := StatusLine("/dev/ttyUSB0", obd.ELMConnected)
	if !strings.Contains(got, "/dev/ttyUSB0") || !strings.Contains(got, obd.ELMConnected.String()) {
		t.Errorf("unexpected status line %q", got)
	}
}
