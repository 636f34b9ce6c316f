package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartobd/internal/obd"
)

func TestSensorsDecode(t *testing.T) {
	a := New(WithSeed(1))
	conn := obd.NewConnection(a, "mock", 0)

	for _, p := range obd.Standard {
		if !p.Numeric() {
			continue
		}
		for i := 0; i < 20; i++ {
			r := obd.Query(context.Background(), conn, p)
			if !r.Present {
				t.Fatalf("%s: expected a reading on call %d", p.Name, i)
			}
		}
	}
}

func TestVIN(t *testing.T) {
	conn := obd.NewConnection(New(WithVIN("WVWZZZ1JZXW000001")), "mock", 0)
	r := obd.Query(context.Background(), conn, obd.PIDVIN)
	if s, _ := r.Value.Text(); s != "WVWZZZ1JZXW000001" {
		t.Errorf("expected VIN, got=%+v", r)
	}

	conn = obd.NewConnection(New(), "mock", 0)
	if r := obd.Query(context.Background(), conn, obd.PIDVIN); r.Present {
		t.Errorf("expected absent VIN, got=%+v", r)
	}
}

func TestDTCsAndClear(t *testing.T) {
	a := New(WithDTCs("P0301", "U0100"), WithPendingDTCs("P0420"))
	conn := obd.NewConnection(a, "mock", 0)

	stored := obd.Query(context.Background(), conn, obd.PIDDTCs).Value.Codes()
	if len(stored) != 2 || stored[0] != "P0301" || stored[1] != "U0100" {
		t.Errorf("expected stored codes in order, got=%v", stored)
	}
	pending := obd.Query(context.Background(), conn, obd.PIDPendingDTC).Value.Codes()
	if len(pending) != 1 || pending[0] != "P0420" {
		t.Errorf("expected pending code, got=%v", pending)
	}

	if r := obd.Query(context.Background(), conn, obd.PIDClearDTCs); !r.Present {
		t.Error("expected clear to be acknowledged")
	}
	after := obd.Query(context.Background(), conn, obd.PIDDTCs)
	if !after.Present || len(after.Value.Codes()) != 0 {
		t.Errorf("expected empty list after clear, got=%+v", after)
	}
}

func TestOverridesAndLatency(t *testing.T) {
	a := New(WithResponse("010c", "NO DATA"), WithLatency(50*time.Millisecond))
	conn := obd.NewConnection(a, "mock", 0, obd.WithTimeout(10*time.Millisecond))

	_, err := conn.Send(context.Background(), obd.PIDEngineRPM)
	if !errors.Is(err, obd.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got=%v", err)
	}

	conn = obd.NewConnection(a, "mock", 0, obd.WithTimeout(time.Second))
	if r := obd.Query(context.Background(), conn, obd.PIDEngineRPM); r.Present {
		t.Errorf("expected override to yield absent, got=%+v", r)
	}
}

func TestStatusAndClose(t *testing.T) {
	a := New(WithStatus(obd.ELMConnected))
	if a.Status() != obd.ELMConnected {
		t.Errorf("expected ELM_CONNECTED, got=%s", a.Status())
	}
	_ = a.Close()
	if a.Status() != obd.NotConnected {
		t.Errorf("expected NOT_CONNECTED after close, got=%s", a.Status())
	}
	if _, err := a.Exec(context.Background(), "010C"); !errors.Is(err, obd.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got=%v", err)
	}
}
