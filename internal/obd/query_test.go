package obd

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	replies map[string]string
	err     error
	sent    []string
}

func (f *fakeSender) Send(_ context.Context, pid PID) (string, error) {
	f.sent = append(f.sent, pid.String())
	if f.err != nil {
		return "", f.err
	}
	reply, ok := f.replies[pid.String()]
	if !ok {
		return "NO DATA", nil
	}
	return reply, nil
}

type fakeAdapter struct {
	status  Status
	replies map[string]string
	calls   int
	closed  bool
}

func (f *fakeAdapter) Exec(_ context.Context, command string) (string, error) {
	f.calls++
	reply, ok := f.replies[command]
	if !ok {
		return "", ErrTimeout
	}
	return reply, nil
}

func (f *fakeAdapter) Status() Status { return f.status }

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func TestQueryAbsentResponses(t *testing.T) {
	replies := []string{
		"NO DATA",
		"SEARCHING...\rUNABLE TO CONNECT",
		"CAN ERROR",
		"BUS BUSY",
		"BUS INIT: ...ERROR",
		"DATA ERROR",
		"STOPPED",
		"?",
		"",
		"41 0C ZZ",
		"41 0D 32",
		"41 0C 1A",
		"7F 01 12",
	}

	for _, raw := range replies {
		s := &fakeSender{replies: map[string]string{"010C": raw}}
		r := Query(context.Background(), s, PIDEngineRPM)
		if r.Present || !r.Value.IsAbsent() {
			t.Errorf("%q: expected absent, got=%+v", raw, r)
		}
	}
}

func TestQuerySendErrors(t *testing.T) {
	for _, err := range []error{ErrTimeout, ErrNotConnected, errors.New("boom")} {
		s := &fakeSender{err: err}
		if r := Query(context.Background(), s, PIDVehicleSpeed); r.Present {
			t.Errorf("%v: expected absent, got=%+v", err, r)
		}
	}
}

func TestQueryNumeric(t *testing.T) {
	tests := map[string]float64{
		"41 0C 1A F8":              1726,
		"410C1AF8":                 1726,
		"010C\r41 0C 1A F8":        1726,
		"41 0C 1A F8\r41 0C 00 00": 1726,
		"SEARCHING...\r410C0FA0":   1000,
	}
	for raw, want := range tests {
		s := &fakeSender{replies: map[string]string{"010C": raw}}
		r := Query(context.Background(), s, PIDEngineRPM)
		f, ok := r.Value.Float()
		if !r.Present || !ok || f != want {
			t.Errorf("%q: expected %v, got=%+v", raw, want, r)
		}
	}
}

func TestQueryDTCs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"can two ecus", "43 02 01 33 02 44\r43 01 C1 23", []string{"P0133", "P0244", "U0123"}},
		{"legacy padded", "43 01 33 00 00 00 00", []string{"P0133"}},
		{"none stored", "43 00", []string{}},
		{"legacy none", "43 00 00 00 00 00 00", []string{}},
		{"multi frame", "00A\r0: 43 04 01 33 02 44\r1: 03 00 04 00 00 00 00", []string{"P0133", "P0244", "P0300", "P0400"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{replies: map[string]string{"03": tt.raw}}
			r := Query(context.Background(), s, PIDDTCs)
			if !r.Present {
				t.Fatalf("expected present, got absent")
			}
			got := r.Value.Codes()
			if got == nil {
				t.Fatal("expected non-nil code list")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got=%v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("code %d: expected %s, got=%s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestQueryClear(t *testing.T) {
	tests := map[string]bool{
		"44":       true,
		"04\r44":   true,
		"NO DATA":  false,
		"?":        false,
		"7F 04 22": false,
	}
	for raw, want := range tests {
		s := &fakeSender{replies: map[string]string{"04": raw}}
		r := Query(context.Background(), s, PIDClearDTCs)
		if r.Present != want {
			t.Errorf("%q: expected present=%v, got=%v", raw, want, r.Present)
		}
		if !r.Value.IsAbsent() {
			t.Errorf("%q: clear must not carry a value, got=%v", raw, r.Value)
		}
	}
}

func TestConnectionSendRequiresVehicle(t *testing.T) {
	for _, st := range []Status{NotConnected, ELMConnected, CANAutoFailed, StatusError} {
		a := &fakeAdapter{status: st, replies: map[string]string{"010C": "410C1AF8"}}
		c := NewConnection(a, "/dev/null", 9600)

		_, err := c.Send(context.Background(), PIDEngineRPM)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("%s: expected ErrNotConnected, got=%v", st, err)
		}
		if a.calls != 0 {
			t.Errorf("%s: adapter must not be contacted, got %d calls", st, a.calls)
		}
	}
}

func TestConnection(t *testing.T) {
	a := &fakeAdapter{status: OBDConnected, replies: map[string]string{
		"010D": "410D32",
		"ATRV": "ATRV\r12.4V",
	}}
	c := NewConnection(a, "/dev/ttyUSB0", 38400, WithTimeout(0))

	if c.Port() != "/dev/ttyUSB0" || c.Baud() != 38400 {
		t.Errorf("unexpected port/baud %s/%d", c.Port(), c.Baud())
	}
	if r := Query(context.Background(), c, PIDVehicleSpeed); !r.Present {
		t.Errorf("expected speed, got absent")
	}
	v, err := c.AdapterVoltage(context.Background())
	if err != nil || v != 12.4 {
		t.Errorf("expected 12.4, got=%v (err: %v)", v, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.closed {
		t.Error("expected adapter to be closed")
	}
	if c.Status() != NotConnected {
		t.Errorf("expected NOT_CONNECTED after close, got=%s", c.Status())
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: unexpected error: %v", err)
	}
}

func TestParseVoltage(t *testing.T) {
	if v, err := ParseVoltage("12.5V"); err != nil || v != 12.5 {
		t.Errorf("expected 12.5, got=%v (err: %v)", v, err)
	}
	if _, err := ParseVoltage("?"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got=%v", err)
	}
	if _, err := ParseVoltage("abc"); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got=%v", err)
	}
}
