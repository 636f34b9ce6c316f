package models

import "time"

// DTCEntry represents a diagnostic trouble code with description.
type DTCEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// BasicReadings holds the three headline values. A nil field was not
// answered by the vehicle.
type BasicReadings struct {
	RPM   *float64 `json:"rpm"`
	Speed *float64 `json:"speed"`
	Temp  *float64 `json:"temp"`
}

// Snapshot is one diagnostic report. DTCs is never nil.
type Snapshot struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	VIN       *string       `json:"vin"`
	Voltage   *float64      `json:"voltage"`
	Basic     BasicReadings `json:"basic"`
	DTCs      []DTCEntry    `json:"dtcs"`
}
