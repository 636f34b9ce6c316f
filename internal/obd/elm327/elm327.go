// Package elm327 drives ELM327-compatible adapters over a serial line.
package elm327

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"smartobd/internal/obd"
	"smartobd/pkg/log"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

const (
	CommandReset           = "ATZ"
	CommandEchoOff         = "ATE0"
	CommandLineFeedsOff    = "ATL0"
	CommandSpacesOff       = "ATS0"
	CommandHeadersOff      = "ATH0"
	CommandSetProtocolAuto = "ATSP0"
	CommandProtocolNum     = "ATDPN"
	CommandReadVoltage     = "ATRV"

	// CommandProbe asks for the supported PIDs 01-20. Every OBD-II ECU
	// answers it, so it doubles as the protocol search trigger.
	CommandProbe = "0100"

	CR     = "\r"
	Prompt = '>'

	DefaultBaud = 9600
)

// Supported protocol IDs, as reported by ATDPN.
var protocols = map[string]string{
	"0": "Auto",
	"1": "SAE J1850 PWM (41.6 kbaud)",
	"2": "SAE J1850 VPW (10.4 kbaud)",
	"3": "ISO 9141-2 (5 baud init)",
	"4": "ISO 14230-4 KWP (5 baud init)",
	"5": "ISO 14230-4 KWP (fast init)",
	"6": "ISO 15765-4 CAN (11 bit ID, 500 kbaud)",
	"7": "ISO 15765-4 CAN (29 bit ID, 500 kbaud)",
	"8": "ISO 15765-4 CAN (11 bit ID, 250 kbaud)",
	"9": "ISO 15765-4 CAN (29 bit ID, 250 kbaud)",
	"A": "SAE J1939 CAN (29 bit ID, 250 kbaud)",
}

// ProtocolName returns the human readable name of an ATDPN answer.
// Auto-detected protocols are prefixed with "A".
func ProtocolName(num string) string {
	num = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(num)), "A")
	if num == "" {
		return "Auto"
	}
	if name, ok := protocols[num]; ok {
		return name
	}
	return "Unknown"
}

// Config selects the serial device.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration // per command
}

func (c Config) withDefaults() Config {
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.Timeout <= 0 {
		c.Timeout = obd.DefaultTimeout
	}
	return c
}

// Adapter is an initialized ELM327. Exec calls are serialized.
type Adapter struct {
	mu       sync.Mutex
	port     io.ReadWriteCloser
	cfg      Config
	status   obd.Status
	version  string
	protocol string
	stale    bool
}

// pollInterval is how long Exec waits when the port has nothing to read.
var pollInterval = 10 * time.Millisecond

// Open opens the serial port and initializes the adapter on it.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	cfg = cfg.withDefaults()
	if cfg.Port == "" {
		return nil, &obd.ConnectionError{Err: errors.New("no serial port given")}
	}

	sc := &serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: 100 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	log.Info("opening serial port", zap.String("port", cfg.Port), zap.Int("baud", cfg.Baud))
	p, err := serial.OpenPort(sc)
	if err != nil {
		return nil, &obd.ConnectionError{Port: cfg.Port, Err: err}
	}
	if err := p.Flush(); err != nil {
		log.Warn("failed to flush port", zap.Error(err))
	}

	return New(ctx, p, cfg)
}

// New runs the initialization sequence over an already open port. The
// port is closed when the adapter does not answer.
func New(ctx context.Context, port io.ReadWriteCloser, cfg Config) (*Adapter, error) {
	a := &Adapter{
		port:   port,
		cfg:    cfg.withDefaults(),
		status: obd.NotConnected,
	}
	if err := a.init(ctx); err != nil {
		a.status = obd.StatusError
		_ = port.Close()
		a.port = nil
		return nil, &obd.ConnectionError{Port: cfg.Port, Err: err}
	}
	log.Info("ELM327 initialized",
		zap.String("port", a.cfg.Port),
		zap.String("version", a.version),
		zap.Stringer("status", a.status),
		zap.String("protocol", a.protocol))
	return a, nil
}

func (a *Adapter) init(ctx context.Context) error {
	resp, err := a.Exec(ctx, CommandReset)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	a.version = banner(resp)
	if a.version == "" {
		return fmt.Errorf("no ELM327 identifier in %q", resp)
	}
	a.status = obd.ELMConnected

	for _, cmd := range []string{
		CommandEchoOff,
		CommandLineFeedsOff,
		CommandSpacesOff,
		CommandHeadersOff,
		CommandSetProtocolAuto,
	} {
		resp, err := a.Exec(ctx, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		if !strings.Contains(strings.ToUpper(resp), "OK") {
			return fmt.Errorf("%s answered %q", cmd, resp)
		}
	}

	// The first request triggers the protocol search, which can take
	// several seconds on K-line vehicles.
	probeCtx, cancel := context.WithTimeout(ctx, 2*a.cfg.Timeout)
	defer cancel()
	resp, err = a.Exec(probeCtx, CommandProbe)
	a.status = classifyProbe(resp, err)
	if a.status != obd.OBDConnected {
		log.Warn("vehicle did not answer the probe",
			zap.Stringer("status", a.status),
			zap.String("response", resp),
			zap.Error(err))
		return nil
	}

	if resp, err := a.Exec(ctx, CommandProtocolNum); err == nil {
		a.protocol = ProtocolName(resp)
	}
	return nil
}

// banner extracts the identification line printed after a reset.
func banner(resp string) string {
	for _, line := range strings.FieldsFunc(resp, func(r rune) bool { return r == '\r' || r == '\n' }) {
		line = strings.TrimSpace(line)
		if strings.Contains(strings.ToUpper(line), "ELM") {
			return line
		}
	}
	return ""
}

// classifyProbe maps the answer to 0100 onto a link status.
func classifyProbe(resp string, err error) obd.Status {
	upper := strings.ToUpper(strings.ReplaceAll(resp, " ", ""))
	switch {
	case err != nil && !errors.Is(err, obd.ErrTimeout):
		return obd.StatusError
	case strings.Contains(upper, "4100"):
		return obd.OBDConnected
	case strings.Contains(upper, "UNABLETOCONNECT"), strings.Contains(upper, "CANERROR"):
		return obd.CANAutoFailed
	}
	return obd.ELMConnected
}

func (a *Adapter) Status() obd.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Version is the identification banner, e.g. "ELM327 v1.5".
func (a *Adapter) Version() string {
	return a.version
}

// Protocol is the name of the protocol the adapter settled on, empty
// when no vehicle answered.
func (a *Adapter) Protocol() string {
	return a.protocol
}

func (a *Adapter) Port() string {
	return a.cfg.Port
}

func (a *Adapter) Baud() int {
	return a.cfg.Baud
}

// Exec writes one command and collects the reply up to the prompt. Without
// a prompt before the context deadline (or the configured timeout when
// ctx has none) it returns what was read along with obd.ErrTimeout.
func (a *Adapter) Exec(ctx context.Context, command string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return "", obd.ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	if a.stale {
		a.drain()
	}
	if err := a.write(command); err != nil {
		return "", err
	}

	resp, err := a.read(ctx)
	if err != nil {
		a.stale = true
		log.Debug("command ended without prompt", zap.String("command", command), zap.String("partial", resp), zap.Error(err))
		return resp, err
	}
	a.stale = false
	return resp, nil
}

func (a *Adapter) write(command string) error {
	full := command + CR
	n, err := a.port.Write([]byte(full))
	if err != nil {
		return fmt.Errorf("write %q: %w", command, err)
	}
	if n != len(full) {
		return fmt.Errorf("write %q: incomplete write %d/%d bytes", command, n, len(full))
	}
	return nil
}

// read collects bytes until the prompt. Control characters other than
// CR/LF are dropped.
func (a *Adapter) read(ctx context.Context) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 64)

	for {
		select {
		case <-ctx.Done():
			return strings.TrimSpace(sb.String()), fmt.Errorf("no prompt: %w", obd.ErrTimeout)
		default:
		}

		n, err := a.port.Read(buf)
		for _, b := range buf[:n] {
			if b == Prompt {
				return strings.TrimSpace(sb.String()), nil
			}
			if b >= 32 && b <= 126 || b == '\r' || b == '\n' {
				sb.WriteByte(b)
			}
		}
		if err != nil && err != io.EOF {
			return strings.TrimSpace(sb.String()), fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			time.Sleep(pollInterval)
		}
	}
}

// drain discards whatever a previous, timed out, command left behind.
func (a *Adapter) drain() {
	buf := make([]byte, 256)
	for {
		n, err := a.port.Read(buf)
		if n > 0 {
			log.Debug("cleared pending data", zap.Int("bytes", n), zap.String("data", string(buf[:n])))
		}
		if err != nil || n == 0 {
			return
		}
	}
}

// Close releases the serial port.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	a.status = obd.NotConnected
	return err
}
