package obd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Lines the adapter prints while it works that carry no data.
var noisePrefixes = []string{
	"SEARCHING",
	"BUS INIT",
	"OK",
}

// Lines that mean the request produced no answer.
var errorMarkers = []string{
	"NO DATA",
	"NODATA",
	"UNABLE TO CONNECT",
	"CAN ERROR",
	"BUS ERROR",
	"BUS BUSY",
	"DATA ERROR",
	"FB ERROR",
	"BUFFER FULL",
	"STOPPED",
	"ERROR",
	"?",
}

// splitLines breaks a raw adapter reply into trimmed, non-empty lines.
func splitLines(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\r' || r == '\n' || r == '>'
	})
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}

func isErrorMarker(line string) bool {
	upper := strings.ToUpper(line)
	for _, m := range errorMarkers {
		if upper == m || strings.HasPrefix(upper, m) || strings.HasSuffix(upper, m) {
			return true
		}
	}
	return false
}

func isNoise(line string) bool {
	upper := strings.ToUpper(line)
	for _, p := range noisePrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// decodeHex parses a line of hex bytes written with or without spaces.
func decodeHex(s string) ([]byte, error) {
	compact := strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("bad hex %q: %w", s, ErrDecode)
	}
	return b, nil
}

// isoTPSegment recognises the "N:" prefix the adapter puts in front of
// each consecutive frame of a multi-frame CAN reply.
func isoTPSegment(line string) (string, bool) {
	i := strings.IndexByte(line, ':')
	if i < 1 || i > 2 {
		return "", false
	}
	if _, err := strconv.ParseUint(line[:i], 16, 8); err != nil {
		return "", false
	}
	return strings.TrimSpace(line[i+1:]), true
}

// isByteCount recognises the length line ("014") that precedes an ISO-TP
// reply.
func isByteCount(line string) (int, bool) {
	if len(line) != 3 {
		return 0, false
	}
	n, err := strconv.ParseUint(line, 16, 16)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// parseFrames turns a raw reply into frames of bytes. Multi-frame replies
// are joined and cut to their announced length. The echoed command, if
// any, is dropped.
func parseFrames(command, raw string) ([][]byte, error) {
	var (
		frames   [][]byte
		sawError bool
		badLine  error

		multi     []byte
		inMulti   bool
		multiSize = -1
	)

	flush := func() {
		if !inMulti {
			return
		}
		if multiSize >= 0 && len(multi) > multiSize {
			multi = multi[:multiSize]
		}
		if len(multi) > 0 {
			frames = append(frames, multi)
		}
		multi, inMulti, multiSize = nil, false, -1
	}

	echo := strings.ReplaceAll(strings.ToUpper(command), " ", "")
	for _, line := range splitLines(raw) {
		if echo != "" && strings.ReplaceAll(strings.ToUpper(line), " ", "") == echo {
			continue
		}
		if isErrorMarker(line) {
			sawError = true
			continue
		}
		if isNoise(line) {
			continue
		}
		if n, ok := isByteCount(line); ok {
			flush()
			inMulti, multiSize = true, n
			continue
		}
		if seg, ok := isoTPSegment(line); ok {
			b, err := decodeHex(seg)
			if err != nil {
				badLine = err
				continue
			}
			inMulti = true
			multi = append(multi, b...)
			continue
		}

		flush()
		b, err := decodeHex(line)
		if err != nil {
			badLine = err
			continue
		}
		frames = append(frames, b)
	}
	flush()

	if len(frames) == 0 {
		if badLine != nil {
			return nil, badLine
		}
		if sawError {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("empty response to %s: %w", command, ErrNoData)
	}
	return frames, nil
}

// payload selects the frames answering pid and returns their data bytes
// with the mode and PID header removed.
func payload(pid PID, frames [][]byte) ([]byte, error) {
	want := pid.Mode + 0x40

	switch {
	case pid.Mode == 0x03 || pid.Mode == 0x07:
		// One frame per ECU. CAN frames carry a code count byte, which
		// shows up as an odd length after the mode byte.
		var out []byte
		matched := false
		for _, f := range frames {
			if len(f) == 0 || f[0] != want {
				continue
			}
			matched = true
			data := f[1:]
			if len(data)%2 == 1 {
				data = data[1:]
			}
			out = append(out, data...)
		}
		if !matched {
			return nil, fmt.Errorf("no %02X frame: %w", want, ErrDecode)
		}
		return out, nil

	case pid.Mode == 0x09:
		var out []byte
		matched := false
		for _, f := range frames {
			if len(f) < 2 || f[0] != want || f[1] != pid.Code {
				continue
			}
			matched = true
			out = append(out, f[2:]...)
		}
		if !matched {
			return nil, fmt.Errorf("no %02X%02X frame: %w", want, pid.Code, ErrDecode)
		}
		return out, nil

	case pid.HasPID:
		for _, f := range frames {
			if len(f) >= 2 && f[0] == want && f[1] == pid.Code {
				return f[2:], nil
			}
		}
		return nil, fmt.Errorf("no %02X%02X frame: %w", want, pid.Code, ErrDecode)

	default:
		for _, f := range frames {
			if len(f) >= 1 && f[0] == want {
				return f[1:], nil
			}
		}
		return nil, fmt.Errorf("no %02X frame: %w", want, ErrDecode)
	}
}

// accepted reports whether raw acknowledges an ack-only command such as
// mode 04.
func accepted(pid PID, raw string) bool {
	want := fmt.Sprintf("%02X", pid.Mode+0x40)
	for _, line := range splitLines(raw) {
		if isErrorMarker(line) {
			return false
		}
	}
	for _, line := range splitLines(raw) {
		compact := strings.ReplaceAll(strings.ToUpper(line), " ", "")
		if strings.HasPrefix(compact, want) || compact == "OK" {
			return true
		}
	}
	return false
}

// ParseVoltage reads the adapter's ATRV answer, e.g. "12.5V".
func ParseVoltage(raw string) (float64, error) {
	for _, line := range splitLines(raw) {
		if isErrorMarker(line) {
			return 0, ErrNoData
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "AT") {
			continue
		}
		s := strings.TrimSpace(strings.TrimSuffix(upper, "V"))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("voltage %q: %w", line, ErrDecode)
		}
		return v, nil
	}
	return 0, ErrNoData
}
