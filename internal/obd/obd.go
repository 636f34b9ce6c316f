package obd

import (
	"context"
	"fmt"
	"time"

	"smartobd/pkg/log"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single command round trip.
const DefaultTimeout = 5 * time.Second

// Status is the link state reported by an adapter.
type Status int

const (
	NotConnected Status = iota
	ELMConnected
	OBDConnected
	CANAutoFailed
	StatusError
)

func (s Status) String() string {
	switch s {
	case NotConnected:
		return "NOT_CONNECTED"
	case ELMConnected:
		return "ELM_CONNECTED"
	case OBDConnected:
		return "OBD_CONNECTED"
	case CANAutoFailed:
		return "CAN_AUTO_FAILED"
	case StatusError:
		return "ERROR"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Adapter abstracts access to an ELM327-like interface. Exec sends one
// command line and returns everything the adapter printed before its
// prompt.
type Adapter interface {
	Exec(ctx context.Context, command string) (string, error)
	Status() Status
	Close() error
}

// Connection is an open session to one adapter. It is owned by a single
// operation and is not safe for concurrent use.
type Connection struct {
	adapter Adapter
	port    string
	baud    int
	timeout time.Duration
}

type Option func(*Connection)

// WithTimeout sets the per-command deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewConnection(a Adapter, port string, baud int, opts ...Option) *Connection {
	c := &Connection{
		adapter: a,
		port:    port,
		baud:    baud,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) Port() string { return c.port }

func (c *Connection) Baud() int { return c.baud }

func (c *Connection) Status() Status {
	if c == nil || c.adapter == nil {
		return NotConnected
	}
	return c.adapter.Status()
}

// Connected reports whether the vehicle answered the protocol probe.
func (c *Connection) Connected() bool {
	return c.Status() == OBDConnected
}

// Send issues the PID request. Without a vehicle link the adapter is not
// touched and ErrNotConnected is returned.
func (c *Connection) Send(ctx context.Context, pid PID) (string, error) {
	if !c.Connected() {
		return "", fmt.Errorf("%s: %w", pid.Name, ErrNotConnected)
	}
	return c.exec(ctx, pid.String())
}

// AdapterVoltage reads the supply voltage seen by the adapter (ATRV). It
// works as soon as the adapter itself answers.
func (c *Connection) AdapterVoltage(ctx context.Context) (float64, error) {
	if s := c.Status(); s == NotConnected || s == StatusError {
		return 0, ErrNotConnected
	}
	raw, err := c.exec(ctx, "ATRV")
	if err != nil {
		return 0, err
	}
	return ParseVoltage(raw)
}

func (c *Connection) exec(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.adapter.Exec(ctx, command)
	log.Debug("exchange",
		zap.String("command", command),
		zap.String("raw", raw),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return raw, err
}

// Close releases the adapter. It is safe to call more than once.
func (c *Connection) Close() error {
	if c == nil || c.adapter == nil {
		return nil
	}
	err := c.adapter.Close()
	c.adapter = nil
	return err
}
