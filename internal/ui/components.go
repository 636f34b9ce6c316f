package ui

import (
	"math"
	"strconv"
	"strings"

	"smartobd/internal/models"
	"smartobd/internal/obd"

	"github.com/charmbracelet/lipgloss"
)

// NotAvailable is printed for readings the vehicle did not return.
const NotAvailable = "n/a"

// Title renders a section title.
func Title(text string) string {
	return TitleStyle.Render(text)
}

// Badge renders a small colored badge.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// StatusLine renders the adapter status of port. Only a vehicle
// connection is shown in green.
func StatusLine(port string, status obd.Status) string {
	color := Warning
	switch status {
	case obd.OBDConnected:
		color = Success
	case obd.NotConnected, obd.StatusError:
		color = Error
	}
	return KeyStyle.Render("Adapter") + port + " " + Badge(status.String(), color)
}

// Field renders one "key value" line.
func Field(key, value string) string {
	return KeyStyle.Render(key) + value
}

// Reading renders an optional number with its unit.
func Reading(key string, v *float64, unit string) string {
	if v == nil {
		return Field(key, DimStyle.Render(NotAvailable))
	}
	s := strconv.FormatFloat(math.Round(*v*100)/100, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return Field(key, BoldStyle.Render(s))
}

// DTCList renders trouble codes one per line, or a placeholder when there
// are none.
func DTCList(entries []models.DTCEntry) string {
	if len(entries) == 0 {
		return DimStyle.Render("No stored trouble codes")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+CodeStyle.Render(e.Code)+": "+e.Description)
	}
	return strings.Join(lines, "\n")
}
