package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartobd/internal/cmd/session"
	"smartobd/internal/obd/mock"
	"smartobd/internal/report"
)

func newSession(opts ...mock.Option) *session.Session {
	a := mock.New(append([]mock.Option{mock.WithSeed(5)}, opts...)...)
	return session.New(a, session.MockPort, 9600, time.Second, nil)
}

func TestExportJSON(t *testing.T) {
	s := newSession(mock.WithVIN("WVWZZZ1JZXW000001"), mock.WithDTCs("P0420"))
	path := filepath.Join(t.TempDir(), "out.json")

	var buf bytes.Buffer
	got, err := export(context.Background(), &buf, s.Scanner, JSON, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("expected %q, got=%q", path, got)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	snap, err := report.ReadJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	if snap.VIN == nil || *snap.VIN != "WVWZZZ1JZXW000001" {
		t.Errorf("unexpected vin %v", snap.VIN)
	}
	if len(snap.DTCs) != 1 || snap.DTCs[0].Code != "P0420" {
		t.Errorf("unexpected dtcs %v", snap.DTCs)
	}
	if snap.ID == "" || snap.Basic.RPM == nil {
		t.Errorf("incomplete snapshot %+v", snap)
	}
	if !strings.Contains(buf.String(), path) {
		t.Errorf("expected path in output, got=%q", buf.String())
	}
}

func TestExportPDFDefaultName(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	s := newSession()

	got, err := export(context.Background(), &bytes.Buffer{}, s.Scanner, PDF, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "report_") || !strings.HasSuffix(got, ".pdf") {
		t.Errorf("unexpected default name %q", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("expected PDF header")
	}
}

func TestExportWriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := newSession()
	if _, err := export(context.Background(), &bytes.Buffer{}, s.Scanner, JSON, filepath.Join(blocker, "r.json")); err == nil {
		t.Error("expected error when the parent is a file")
	}
}
