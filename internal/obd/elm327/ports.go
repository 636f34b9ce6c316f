package elm327

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"smartobd/internal/obd"
	"smartobd/pkg/log"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// PortInfo holds details about a serial port.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts returns available serial ports, USB devices first.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	result := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		result = append(result, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].IsUSB && !result[j].IsUSB
	})
	return result, nil
}

// fallbackPorts are tried when enumeration misses a device, which happens
// for Bluetooth RFCOMM bindings.
func fallbackPorts() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"/dev/rfcomm0", "/dev/ttyUSB0", "/dev/ttyACM0"}
	case "darwin":
		return []string{"/dev/tty.OBDII-SPPDev", "/dev/tty.usbserial"}
	case "windows":
		return []string{"COM3", "COM4", "COM5"}
	}
	return nil
}

// candidates merges enumerated and fallback ports, keeping the first
// occurrence of each name.
func candidates(listed []PortInfo, fallbacks []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, p := range listed {
		add(p.Name)
	}
	for _, name := range fallbacks {
		add(name)
	}
	return out
}

// Discover opens the first serial device that answers as an ELM327. Only
// the configured baud rate is used.
func Discover(ctx context.Context, cfg Config) (*Adapter, error) {
	listed, err := ListPorts()
	if err != nil {
		log.Warn("failed to enumerate serial ports", zap.Error(err))
	}

	var lastErr error
	for _, name := range candidates(listed, fallbackPorts()) {
		if err := ctx.Err(); err != nil {
			return nil, &obd.ConnectionError{Err: err}
		}
		c := cfg
		c.Port = name
		a, err := Open(ctx, c)
		if err == nil {
			return a, nil
		}
		log.Debug("port did not answer", zap.String("port", name), zap.Error(err))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no serial ports found")
	}
	return nil, &obd.ConnectionError{Err: errors.Join(errors.New("no ELM327 adapter found"), lastErr)}
}
