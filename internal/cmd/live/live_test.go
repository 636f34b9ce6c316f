package live

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartobd/internal/cmd/session"
	"smartobd/internal/csvlog"
	"smartobd/internal/obd"
	"smartobd/internal/obd/mock"
	"smartobd/internal/sampler"

	"github.com/spf13/cobra"
)

func newSession(opts ...mock.Option) *session.Session {
	a := mock.New(append([]mock.Option{mock.WithSeed(7)}, opts...)...)
	return session.New(a, session.MockPort, 9600, time.Second, nil)
}

func TestFields(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "rpm,speed,temp,voltage"},
		{[]string{"RPM", " maf "}, "rpm,maf"},
		{[]string{"rpm,speed", "", "tps"}, "rpm,speed,tps"},
		{[]string{" , "}, "rpm,speed,temp,voltage"},
	}
	for _, tt := range tests {
		if got := strings.Join(Fields(tt.in), ","); got != tt.want {
			t.Errorf("Fields(%q): expected %q, got=%q", tt.in, tt.want, got)
		}
	}
}

func TestReadOptions(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringSlice("pids", nil, "")
	cmd.Flags().Float64("hz", 5, "")
	cmd.Flags().Float64("secs", 60, "")
	if err := cmd.Flags().Parse([]string{"--pids", "rpm,maf", "--secs", "1.5"}); err != nil {
		t.Fatal(err)
	}

	opts := ReadOptions(cmd)
	if strings.Join(opts.Fields, ",") != "rpm,maf" {
		t.Errorf("unexpected fields %v", opts.Fields)
	}
	if opts.Hz != 5 || opts.Duration != 1500*time.Millisecond {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestFormatSample(t *testing.T) {
	got := formatSample(sampler.Sample{
		Elapsed: 1.234,
		Fields:  []string{"rpm", "speed"},
		Values:  map[string]obd.Value{"rpm": obd.Number(1726)},
	})
	if got != "t=  1.23s  rpm=1726  speed=n/a" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestPrintLive(t *testing.T) {
	s := newSession()
	var buf bytes.Buffer
	opts := Options{Fields: []string{"rpm", "bogus"}, Hz: 20, Duration: 200 * time.Millisecond}
	if err := printLive(context.Background(), &buf, s.Scanner, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got=%q", buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, "bogus=n/a") || strings.Contains(l, "rpm=n/a") {
			t.Errorf("unexpected line %q", l)
		}
	}
}

func TestPrintLiveRejectsRate(t *testing.T) {
	s := newSession()
	if err := printLive(context.Background(), &bytes.Buffer{}, s.Scanner, Options{Fields: []string{"rpm"}}); err == nil {
		t.Error("expected error for zero rate")
	}
}

func TestLogCSV(t *testing.T) {
	s := newSession(mock.WithResponse("010D", "NO DATA"))
	path := filepath.Join(t.TempDir(), "logs", "drive.csv")
	opts := Options{Fields: []string{"rpm", "speed"}, Hz: 20, Duration: 200 * time.Millisecond}

	var buf bytes.Buffer
	if err := logCSV(context.Background(), &buf, s.Scanner, opts, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l, err := csvlog.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(l.Fields, ",") != "rpm,speed" {
		t.Errorf("unexpected header %v", l.Fields)
	}
	if len(l.Rows) < 2 {
		t.Fatalf("expected several rows, got=%d", len(l.Rows))
	}
	for i, r := range l.Rows {
		if r.Values[0] == nil {
			t.Errorf("row %d: expected rpm", i)
		}
		if r.Values[1] != nil {
			t.Errorf("row %d: expected empty speed, got=%v", i, *r.Values[1])
		}
	}
	if !strings.Contains(buf.String(), path) {
		t.Errorf("expected path in output, got=%q", buf.String())
	}
}

func TestLogCSVDefaultHeader(t *testing.T) {
	s := newSession()
	path := filepath.Join(t.TempDir(), "logs.csv")
	opts := Options{Fields: Fields(nil), Hz: 20, Duration: 100 * time.Millisecond}
	if err := logCSV(context.Background(), &bytes.Buffer{}, s.Scanner, opts, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	header, _, _ := strings.Cut(string(data), "\n")
	if header != "t,rpm,speed,temp,voltage" {
		t.Errorf("expected default header, got=%q", header)
	}
}

func TestLogCSVCommandFieldsStayEmpty(t *testing.T) {
	s := newSession(mock.WithDTCs("P0301", "P0420"))
	path := filepath.Join(t.TempDir(), "logs.csv")
	opts := Options{Fields: []string{"rpm", "clear_dtc", "get_dtc"}, Hz: 20, Duration: 100 * time.Millisecond}
	if err := logCSV(context.Background(), &bytes.Buffer{}, s.Scanner, opts, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.Scanner.ReadDTCs(context.Background()); len(got) != 2 {
		t.Errorf("expected stored codes untouched, got=%v", got)
	}
	l, err := csvlog.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Rows) == 0 {
		t.Fatal("expected rows")
	}
	for i, r := range l.Rows {
		if r.Raw[1] != "" || r.Raw[2] != "" {
			t.Errorf("row %d: expected empty command columns, got=%q", i, r.Raw)
		}
	}
}

func TestNewSamplerRejectsNegativeDuration(t *testing.T) {
	s := newSession()
	if _, err := NewSampler(s.Scanner, Options{Fields: []string{"rpm"}, Hz: 1, Duration: -time.Second}); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("expected localhost:8080, got=%q", got)
	}
	if got := displayAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("expected unchanged address, got=%q", got)
	}
}
