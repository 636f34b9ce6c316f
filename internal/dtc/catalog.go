package dtc

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is the description used for codes missing from the catalog.
const Unknown = "Unknown DTC"

var builtin = map[string]string{
	// Powertrain codes
	"P0100": "Mass or Volume Air Flow Circuit Malfunction",
	"P0101": "Mass Air Flow Circuit Range/Performance",
	"P0102": "Mass Air Flow Circuit Low Input",
	"P0103": "Mass Air Flow Circuit High Input",
	"P0110": "Intake Air Temperature Circuit Malfunction",
	"P0115": "Engine Coolant Temperature Circuit Malfunction",
	"P0120": "Throttle Position Sensor Circuit Malfunction",
	"P0128": "Coolant Thermostat Below Regulating Temperature",
	"P0133": "O2 Sensor Circuit Slow Response (Bank 1 Sensor 1)",
	"P0171": "System Too Lean (Bank 1)",
	"P0172": "System Too Rich (Bank 1)",
	"P0174": "System Too Lean (Bank 2)",
	"P0175": "System Too Rich (Bank 2)",
	"P0300": "Random/Multiple Cylinder Misfire Detected",
	"P0301": "Cylinder 1 Misfire Detected",
	"P0302": "Cylinder 2 Misfire Detected",
	"P0303": "Cylinder 3 Misfire Detected",
	"P0304": "Cylinder 4 Misfire Detected",
	"P0325": "Knock Sensor 1 Circuit Malfunction",
	"P0335": "Crankshaft Position Sensor A Circuit Malfunction",
	"P0401": "Exhaust Gas Recirculation Flow Insufficient",
	"P0402": "Exhaust Gas Recirculation Flow Excessive",
	"P0420": "Catalyst System Efficiency Below Threshold (Bank 1)",
	"P0440": "Evaporative Emission Control System Malfunction",
	"P0441": "Evaporative Emission Control System Incorrect Purge Flow",
	"P0442": "Evaporative Emission Control System Leak Detected (Small)",
	"P0443": "Evaporative Emission Control System Purge Control Valve Circuit",
	"P0455": "Evaporative Emission Control System Leak Detected (Large)",
	"P0500": "Vehicle Speed Sensor Malfunction",
	"P0505": "Idle Control System Malfunction",
	"P0506": "Idle Control System RPM Lower Than Expected",
	"P0507": "Idle Control System RPM Higher Than Expected",
	"P0562": "System Voltage Low",
	"P0563": "System Voltage High",

	// Chassis codes
	"C1A00": "TPMS Control Module Malfunction",
	"C1A01": "TPMS Module Configuration Error",
	"C1A02": "TPMS RF Receiver Malfunction",
	"C2100": "Tire Pressure Too Low - Left Front",
	"C2101": "Tire Pressure Too Low - Right Front",
	"C2102": "Tire Pressure Too Low - Right Rear",
	"C2103": "Tire Pressure Too Low - Left Rear",

	// Body codes
	"B1000": "Body Control Module Malfunction",
	"B1342": "ECU Defective",
	"B1600": "Ignition Switch Malfunction",

	// Network codes
	"U0001": "High Speed CAN Communication Bus",
	"U0100": "Lost Communication With ECM/PCM",
	"U0101": "Lost Communication With TCM",
	"U0121": "Lost Communication With ABS Module",
	"U0140": "Lost Communication With Body Control Module",
	"U0155": "Lost Communication With Instrument Cluster",
}

// Catalog resolves codes to descriptions. A Catalog is not modified after
// it is built.
type Catalog struct {
	entries map[string]string
}

// catalogFile is the on-disk layout of a description overlay:
//
//	codes:
//	  P1234: Manufacturer specific description
type catalogFile struct {
	Codes map[string]string `yaml:"codes"`
}

// NewCatalog returns the built-in catalog merged with extra entries.
func NewCatalog(extra map[string]string) *Catalog {
	entries := make(map[string]string, len(builtin)+len(extra))
	for k, v := range builtin {
		entries[k] = v
	}
	for k, v := range extra {
		entries[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Catalog{entries: entries}
}

// LoadCatalog reads a YAML overlay and merges it over the built-in table.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dtc catalog %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dtc catalog %s: %w", path, err)
	}
	return NewCatalog(f.Codes), nil
}

// Describe returns the description of code.
func (c *Catalog) Describe(code string) string {
	if c != nil {
		if desc, ok := c.entries[code]; ok {
			return desc
		}
	}
	if strings.HasPrefix(code, "C1A") || strings.HasPrefix(code, "C2") {
		return "TPMS/Tire Pressure Related Code"
	}
	if len(code) == 5 && code[1] != '0' && code[1] != '2' {
		if sys := System(code); sys != "" {
			return sys + " manufacturer specific code"
		}
	}
	return Unknown
}

// Len reports the number of known codes.
func (c *Catalog) Len() int {
	return len(c.entries)
}
