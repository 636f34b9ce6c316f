// Package mock simulates an ELM327 adapter attached to a running vehicle.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"smartobd/internal/dtc"
	"smartobd/internal/obd"
)

// Adapter answers OBD-II requests with ELM327 style text. Sensor values
// take a random walk step every time they are read.
type Adapter struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	status obd.Status
	closed bool
	start  time.Time

	latency   time.Duration
	faultRate float64
	vin       string
	stored    []string
	pending   []string
	overrides map[string]string

	// simulated values
	rpm      float64
	speed    float64
	coolant  float64
	oil      float64
	throttle float64
	fuel     float64
	voltage  float64
	distance float64
	calls    int
}

type Option func(*Adapter)

// WithVIN makes mode 09 PID 02 answer with vin. Without it the request
// gets NO DATA, as on many Bluetooth adapters.
func WithVIN(vin string) Option {
	return func(a *Adapter) { a.vin = vin }
}

// WithDTCs sets the stored trouble codes.
func WithDTCs(codes ...string) Option {
	return func(a *Adapter) { a.stored = append([]string(nil), codes...) }
}

// WithPendingDTCs sets the codes reported by mode 07.
func WithPendingDTCs(codes ...string) Option {
	return func(a *Adapter) { a.pending = append([]string(nil), codes...) }
}

// WithResponse forces the raw reply to command.
func WithResponse(command, raw string) Option {
	return func(a *Adapter) { a.overrides[strings.ToUpper(command)] = raw }
}

// WithLatency delays every reply.
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) { a.latency = d }
}

// WithStatus overrides the reported link status.
func WithStatus(s obd.Status) Option {
	return func(a *Adapter) { a.status = s }
}

// WithSeed makes the random walk reproducible.
func WithSeed(seed int64) Option {
	return func(a *Adapter) { a.rnd = rand.New(rand.NewSource(seed)) }
}

// WithFaultRate is the probability that a stored code read adds a
// random simulated fault first.
func WithFaultRate(p float64) Option {
	return func(a *Adapter) { a.faultRate = p }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		status:    obd.OBDConnected,
		start:     time.Now(),
		overrides: make(map[string]string),
		stored:    []string{},
		rpm:       800,
		coolant:   75,
		oil:       80,
		throttle:  15,
		fuel:      62,
		voltage:   14.1,
		distance:  1234,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Status() obd.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return obd.NotConnected
	}
	return a.status
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Calls reports how many commands were executed.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *Adapter) Exec(ctx context.Context, command string) (string, error) {
	if a.latency > 0 {
		select {
		case <-time.After(a.latency):
		case <-ctx.Done():
			return "", fmt.Errorf("mock: %w", obd.ErrTimeout)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return "", obd.ErrNotConnected
	}
	a.calls++

	cmd := strings.ToUpper(strings.ReplaceAll(command, " ", ""))
	if raw, ok := a.overrides[cmd]; ok {
		return raw, nil
	}

	switch {
	case cmd == "ATRV":
		return fmt.Sprintf("%.1fV", a.voltage-1.5), nil
	case cmd == "ATZ":
		return "ELM327 v1.5", nil
	case cmd == "ATDPN":
		return "A6", nil
	case strings.HasPrefix(cmd, "AT"):
		return "OK", nil
	case cmd == "0100":
		return "41 00 BE 3F A8 13", nil
	case cmd == "0902":
		return a.vinReply(), nil
	case cmd == "03":
		if a.faultRate > 0 && a.rnd.Float64() < a.faultRate {
			a.stored = append(a.stored, fmt.Sprintf("P%04d", a.rnd.Intn(1000)))
		}
		return dtcReply(0x43, a.stored), nil
	case cmd == "07":
		return dtcReply(0x47, a.pending), nil
	case cmd == "04":
		a.stored = []string{}
		return "44", nil
	}

	a.walk()
	if raw, ok := a.sensor(cmd); ok {
		return raw, nil
	}
	return "NO DATA", nil
}

// walk moves every simulated value one step, inside plausible bounds.
func (a *Adapter) walk() {
	a.rpm = clamp(a.rpm+float64(a.rnd.Intn(201)-100), 600, 4000)
	a.speed = clamp(a.speed+float64(a.rnd.Intn(7)-3), 0, 180)
	a.coolant = clamp(a.coolant+float64(a.rnd.Intn(21)-10)*0.1, 60, 110)
	a.oil = clamp(a.oil+float64(a.rnd.Intn(21)-10)*0.1, 60, 130)
	a.throttle = clamp(a.throttle+float64(a.rnd.Intn(11)-5), 0, 100)
	a.fuel = clamp(a.fuel-0.01, 0, 100)
	a.voltage = clamp(a.voltage+float64(a.rnd.Intn(5)-2)*0.05, 11.5, 14.7)
	a.distance += a.speed / 3600
}

func (a *Adapter) sensor(cmd string) (string, bool) {
	switch cmd {
	case "010C":
		return frame(0x0C, word(a.rpm*4)...), true
	case "010D":
		return frame(0x0D, byte(a.speed)), true
	case "0105":
		return frame(0x05, byte(a.coolant+40)), true
	case "015C":
		return frame(0x5C, byte(a.oil+40)), true
	case "0110":
		return frame(0x10, word(2+a.rpm/250*100)...), true
	case "0111":
		return frame(0x11, byte(a.throttle*255/100)), true
	case "010F":
		return frame(0x0F, byte(30+40)), true
	case "010B":
		return frame(0x0B, byte(30+a.throttle*0.7)), true
	case "012F":
		return frame(0x2F, byte(a.fuel*255/100)), true
	case "0142":
		return frame(0x42, word(a.voltage*1000)...), true
	case "0104":
		return frame(0x04, byte(a.throttle*255/100)), true
	case "0131":
		return frame(0x31, word(a.distance)...), true
	case "011F":
		return frame(0x1F, word(time.Since(a.start).Seconds())...), true
	case "0133":
		return frame(0x33, 101), true
	case "0146":
		return frame(0x46, byte(18+40)), true
	}
	return "", false
}

// vinReply renders the VIN as an ISO-TP multi-frame answer.
func (a *Adapter) vinReply() string {
	if a.vin == "" {
		return "NO DATA"
	}
	data := append([]byte{0x49, 0x02, 0x01}, []byte(a.vin)...)
	lines := []string{fmt.Sprintf("%03X", len(data))}
	for i, n := 0, 0; i < len(data); n++ {
		size := 7
		if n == 0 {
			size = 6
		}
		end := min(i+size, len(data))
		lines = append(lines, fmt.Sprintf("%X: %s", n%16, hexBytes(data[i:end])))
		i = end
	}
	return strings.Join(lines, "\r")
}

// dtcReply renders a CAN style code list: mode, count, then pairs.
func dtcReply(mode byte, codes []string) string {
	data := []byte{mode, byte(len(codes))}
	for _, c := range codes {
		if hi, lo, ok := dtc.Encode(c); ok {
			data = append(data, hi, lo)
		}
	}
	return hexBytes(data)
}

func frame(pid byte, data ...byte) string {
	return hexBytes(append([]byte{0x41, pid}, data...))
}

func word(v float64) []byte {
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	n := uint16(v)
	return []byte{byte(n >> 8), byte(n)}
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
