package obd

import (
	"fmt"

	"smartobd/internal/dtc"
)

// Name identifies a supported command. Strings are only used at the
// edges (flags, CSV headers, JSON).
type Name int

const (
	RPM Name = iota + 1
	Speed
	CoolantTemp
	MAF
	ThrottlePos
	IntakeTemp
	IntakePressure
	FuelLevel
	ModuleVoltage
	EngineLoad
	OilTemp
	DistanceSinceClear
	RunTime
	BaroPressure
	AmbientTemp
	VIN
	GetDTC
	PendingDTC
	ClearDTC
)

var nameStrings = map[Name]string{
	RPM:                "rpm",
	Speed:              "speed",
	CoolantTemp:        "temp",
	MAF:                "maf",
	ThrottlePos:        "tps",
	IntakeTemp:         "intake_temp",
	IntakePressure:     "map",
	FuelLevel:          "fuel_level",
	ModuleVoltage:      "voltage",
	EngineLoad:         "engine_load",
	OilTemp:            "oil_temp",
	DistanceSinceClear: "distance_since_clear",
	RunTime:            "run_time",
	BaroPressure:       "baro",
	AmbientTemp:        "ambient_temp",
	VIN:                "vin",
	GetDTC:             "get_dtc",
	PendingDTC:         "pending_dtc",
	ClearDTC:           "clear_dtc",
}

func (n Name) String() string {
	if s, ok := nameStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("pid(%d)", int(n))
}

// Unit is the physical unit of a decoded number.
type Unit string

const (
	UnitNone    Unit = ""
	UnitRPM     Unit = "rpm"
	UnitKPH     Unit = "km/h"
	UnitCelsius Unit = "°C"
	UnitGramsPS Unit = "g/s"
	UnitPercent Unit = "%"
	UnitKPa     Unit = "kPa"
	UnitVolt    Unit = "V"
	UnitKm      Unit = "km"
	UnitSecond  Unit = "s"
)

// Decoder converts the data bytes of a response (header stripped) into a
// Value.
type Decoder func(data []byte) (Value, error)

// PID describes one OBD-II request and how to decode its answer.
type PID struct {
	Name   Name
	Mode   byte
	Code   byte
	HasPID bool
	Desc   string
	Unit   Unit
	Bytes  int // data bytes required by Decode, 0 when variable
	Min    float64
	Max    float64
	decode Decoder
}

var (
	PIDEngineRPM = PID{Name: RPM, Mode: 0x01, Code: 0x0C, HasPID: true, Desc: "Engine RPM",
		Unit: UnitRPM, Bytes: 2, Min: 0, Max: 16383.75, decode: word(4, 0)}
	PIDVehicleSpeed = PID{Name: Speed, Mode: 0x01, Code: 0x0D, HasPID: true, Desc: "Vehicle Speed",
		Unit: UnitKPH, Bytes: 1, Min: 0, Max: 255, decode: single(1, 1, 0)}
	PIDCoolantTemp = PID{Name: CoolantTemp, Mode: 0x01, Code: 0x05, HasPID: true, Desc: "Engine Coolant Temperature",
		Unit: UnitCelsius, Bytes: 1, Min: -40, Max: 215, decode: single(1, 1, -40)}
	PIDMAF = PID{Name: MAF, Mode: 0x01, Code: 0x10, HasPID: true, Desc: "Mass Air Flow Rate",
		Unit: UnitGramsPS, Bytes: 2, Min: 0, Max: 655.35, decode: word(100, 0)}
	PIDThrottlePos = PID{Name: ThrottlePos, Mode: 0x01, Code: 0x11, HasPID: true, Desc: "Throttle Position",
		Unit: UnitPercent, Bytes: 1, Min: 0, Max: 100, decode: single(100, 255, 0)}
	PIDIntakeTemp = PID{Name: IntakeTemp, Mode: 0x01, Code: 0x0F, HasPID: true, Desc: "Intake Air Temperature",
		Unit: UnitCelsius, Bytes: 1, Min: -40, Max: 215, decode: single(1, 1, -40)}
	PIDIntakePressure = PID{Name: IntakePressure, Mode: 0x01, Code: 0x0B, HasPID: true, Desc: "Intake Manifold Pressure",
		Unit: UnitKPa, Bytes: 1, Min: 0, Max: 255, decode: single(1, 1, 0)}
	PIDFuelLevel = PID{Name: FuelLevel, Mode: 0x01, Code: 0x2F, HasPID: true, Desc: "Fuel Tank Level Input",
		Unit: UnitPercent, Bytes: 1, Min: 0, Max: 100, decode: single(100, 255, 0)}
	PIDModuleVoltage = PID{Name: ModuleVoltage, Mode: 0x01, Code: 0x42, HasPID: true, Desc: "Control Module Voltage",
		Unit: UnitVolt, Bytes: 2, Min: 0, Max: 65.535, decode: word(1000, 0)}
	PIDEngineLoad = PID{Name: EngineLoad, Mode: 0x01, Code: 0x04, HasPID: true, Desc: "Calculated Engine Load",
		Unit: UnitPercent, Bytes: 1, Min: 0, Max: 100, decode: single(100, 255, 0)}
	PIDOilTemp = PID{Name: OilTemp, Mode: 0x01, Code: 0x5C, HasPID: true, Desc: "Engine Oil Temperature",
		Unit: UnitCelsius, Bytes: 1, Min: -40, Max: 215, decode: single(1, 1, -40)}
	PIDTotalKilometers = PID{Name: DistanceSinceClear, Mode: 0x01, Code: 0x31, HasPID: true, Desc: "Distance traveled since codes cleared",
		Unit: UnitKm, Bytes: 2, Min: 0, Max: 65535, decode: word(1, 0)}
	PIDRunTime = PID{Name: RunTime, Mode: 0x01, Code: 0x1F, HasPID: true, Desc: "Run time since engine start",
		Unit: UnitSecond, Bytes: 2, Min: 0, Max: 65535, decode: word(1, 0)}
	PIDBaroPressure = PID{Name: BaroPressure, Mode: 0x01, Code: 0x33, HasPID: true, Desc: "Absolute Barometric Pressure",
		Unit: UnitKPa, Bytes: 1, Min: 0, Max: 255, decode: single(1, 1, 0)}
	PIDAmbientTemp = PID{Name: AmbientTemp, Mode: 0x01, Code: 0x46, HasPID: true, Desc: "Ambient Air Temperature",
		Unit: UnitCelsius, Bytes: 1, Min: -40, Max: 215, decode: single(1, 1, -40)}

	PIDVIN        = PID{Name: VIN, Mode: 0x09, Code: 0x02, HasPID: true, Desc: "Vehicle Identification Number", decode: decodeVIN}
	PIDDTCs       = PID{Name: GetDTC, Mode: 0x03, Desc: "Stored diagnostic trouble codes", decode: decodeDTCs}
	PIDPendingDTC = PID{Name: PendingDTC, Mode: 0x07, Desc: "Pending diagnostic trouble codes", decode: decodeDTCs}
	PIDClearDTCs  = PID{Name: ClearDTC, Mode: 0x04, Desc: "Clear trouble codes and MIL"}
)

// Standard lists every descriptor shipped with the scanner.
var Standard = []PID{
	PIDEngineRPM, PIDVehicleSpeed, PIDCoolantTemp, PIDMAF, PIDThrottlePos,
	PIDIntakeTemp, PIDIntakePressure, PIDFuelLevel, PIDModuleVoltage,
	PIDEngineLoad, PIDOilTemp, PIDTotalKilometers, PIDRunTime,
	PIDBaroPressure, PIDAmbientTemp,
	PIDVIN, PIDDTCs, PIDPendingDTC, PIDClearDTCs,
}

// String returns the wire command, e.g. "010C" or "03".
func (p PID) String() string {
	if !p.HasPID {
		return fmt.Sprintf("%02X", p.Mode)
	}
	return fmt.Sprintf("%02X%02X", p.Mode, p.Code)
}

// Numeric reports whether the PID decodes to a physical quantity.
func (p PID) Numeric() bool {
	return p.Unit != UnitNone
}

// Acknowledge reports whether the command carries no decoded value.
func (p PID) Acknowledge() bool {
	return p.decode == nil
}

// Decode applies the decoder. Short payloads and out-of-range results
// are reported as ErrDecode.
func (p PID) Decode(data []byte) (Value, error) {
	if p.decode == nil {
		return Value{}, fmt.Errorf("%s has no decoder: %w", p.Name, ErrDecode)
	}
	if p.Bytes > 0 && len(data) < p.Bytes {
		return Value{}, fmt.Errorf("%s needs %d bytes, got %d: %w", p.Name, p.Bytes, len(data), ErrDecode)
	}
	v, err := p.decode(data)
	if err != nil {
		return Value{}, err
	}
	if f, ok := v.Float(); ok && (f < p.Min || f > p.Max) {
		return Value{}, fmt.Errorf("%s value %v outside [%v, %v]: %w", p.Name, f, p.Min, p.Max, ErrDecode)
	}
	return v, nil
}

// single decodes A*mul/div+offset.
func single(mul, div, offset float64) Decoder {
	return func(data []byte) (Value, error) {
		return Number(float64(data[0])*mul/div + offset), nil
	}
}

// word decodes (256*A+B)/div+offset.
func word(div, offset float64) Decoder {
	return func(data []byte) (Value, error) {
		raw := int(data[0])<<8 | int(data[1])
		return Number(float64(raw)/div + offset), nil
	}
}

// decodeVIN keeps the printable characters of the payload. Both the CAN
// layout (count byte + 17 chars) and the legacy layout (sequence byte +
// 4 chars per frame, zero padded) reduce to the last 17 of them.
func decodeVIN(data []byte) (Value, error) {
	chars := make([]byte, 0, len(data))
	for _, b := range data {
		if (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') {
			chars = append(chars, b)
		}
	}
	if len(chars) < 17 {
		return Value{}, fmt.Errorf("vin has %d characters: %w", len(chars), ErrDecode)
	}
	return Text(string(chars[len(chars)-17:])), nil
}

// decodeDTCs expects the concatenated two-byte code pairs.
func decodeDTCs(data []byte) (Value, error) {
	if len(data)%2 != 0 {
		return Value{}, fmt.Errorf("odd trouble code payload (%d bytes): %w", len(data), ErrDecode)
	}
	codes := []string{}
	for i := 0; i+1 < len(data); i += 2 {
		if code := dtc.Decode(data[i], data[i+1]); code != "" {
			codes = append(codes, code)
		}
	}
	return Codes(codes), nil
}
