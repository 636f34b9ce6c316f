package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"smartobd/internal/models"

	"github.com/go-pdf/fpdf"
)

const (
	marginMM = 20
	notAvail = "Not available"
)

// WritePDF renders snap as a one or more page A4 document.
func WritePDF(w io.Writer, snap models.Snapshot) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetTitle("SmartOBD diagnostic report", true)
	pdf.SetCreator("smartobd", true)
	if !snap.Timestamp.IsZero() {
		pdf.SetCreationDate(snap.Timestamp)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	line := func(txt string, size float64, style string, h float64) {
		pdf.SetFont("Helvetica", style, size)
		pdf.MultiCell(0, h, tr(txt), "", "L", false)
	}

	line("SmartOBD - Diagnostic Report", 16, "B", 9)
	pdf.Ln(2)
	line("Date: "+snap.Timestamp.Format("2006-01-02 15:04:05"), 12, "", 6)
	if snap.ID != "" {
		line("Report ID: "+snap.ID, 10, "", 5)
	}
	vin := notAvail
	if snap.VIN != nil && *snap.VIN != "" {
		vin = *snap.VIN
	}
	line("VIN: "+vin, 12, "", 6)
	line("Module voltage: "+withUnit(snap.Voltage, "V"), 12, "", 6)
	pdf.Ln(4)

	line("Basic readings", 14, "B", 8)
	line(" - RPM: "+withUnit(snap.Basic.RPM, ""), 12, "", 6)
	line(" - SPEED: "+withUnit(snap.Basic.Speed, "km/h"), 12, "", 6)
	line(" - TEMP: "+withUnit(snap.Basic.Temp, "°C"), 12, "", 6)
	pdf.Ln(4)

	line("Trouble codes", 14, "B", 8)
	if len(snap.DTCs) == 0 {
		line(" - No stored trouble codes", 12, "", 6)
	}
	for _, d := range snap.DTCs {
		line(fmt.Sprintf(" - %s: %s", d.Code, d.Description), 12, "", 6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	return nil
}

// ExportPDF writes snap to path.
func ExportPDF(path string, snap models.Snapshot) error {
	return writeFile(path, func(f *os.File) error {
		return WritePDF(f, snap)
	})
}

func withUnit(v *float64, unit string) string {
	if v == nil {
		return notAvail
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
