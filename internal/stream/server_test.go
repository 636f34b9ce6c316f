package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartobd/internal/obd"
	"smartobd/internal/sampler"

	"github.com/gorilla/websocket"
)

func waitClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got=%d", n, s.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s := New(obd.OBDConnected, "mock")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitClients(t, s, 1)

	s.Broadcast(sampler.Sample{
		Elapsed: 1.5,
		Fields:  []string{"rpm", "speed"},
		Values: map[string]obd.Value{
			"rpm":   obd.Number(1726),
			"speed": {},
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var frame struct {
		T      float64             `json:"t"`
		Fields []string            `json:"fields"`
		Values map[string]*float64 `json:"values"`
		Stamp  int64               `json:"stamp"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("bad frame %s: %v", data, err)
	}
	if frame.T != 1.5 || len(frame.Fields) != 2 || frame.Stamp == 0 {
		t.Errorf("unexpected frame %s", data)
	}
	if frame.Values["rpm"] == nil || *frame.Values["rpm"] != 1726 {
		t.Errorf("expected rpm 1726, got=%s", data)
	}
	if frame.Values["speed"] != nil {
		t.Errorf("expected null speed, got=%s", data)
	}
}

func TestClientDisconnect(t *testing.T) {
	s := New(obd.OBDConnected, "mock")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitClients(t, s, 1)
	conn.Close()
	waitClients(t, s, 0)

	// Broadcasting without clients still counts the sample.
	s.Broadcast(sampler.Sample{Fields: []string{"rpm"}, Values: map[string]obd.Value{}})
	if s.sent.Load() != 1 {
		t.Errorf("expected 1 sample sent, got=%d", s.sent.Load())
	}
}

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		status obd.Status
		code   int
	}{
		{obd.OBDConnected, http.StatusOK},
		{obd.ELMConnected, http.StatusServiceUnavailable},
	} {
		s := New(tc.status, "/dev/ttyUSB0")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got=%d", tc.status, tc.code, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got=%q", ct)
		}
		var h Health
		if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if h.Status != tc.status.String() || h.Port != "/dev/ttyUSB0" || h.Clients != 0 {
			t.Errorf("unexpected health %+v", h)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	s := New(obd.OBDConnected, "mock")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got=%d", rec.Code)
	}
}

func TestRunStopsWhenSamplesEnd(t *testing.T) {
	s := New(obd.OBDConnected, "mock")
	seq := func(yield func(sampler.Sample) bool) {
		for i := 0; i < 3; i++ {
			if !yield(sampler.Sample{Elapsed: float64(i)}) {
				return
			}
		}
	}
	if err := s.Run(context.Background(), "127.0.0.1:0", seq); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.sent.Load() != 3 {
		t.Errorf("expected 3 samples sent, got=%d", s.sent.Load())
	}
}

func TestRunListenFailure(t *testing.T) {
	s := New(obd.OBDConnected, "mock")
	seq := func(yield func(sampler.Sample) bool) {
		for {
			time.Sleep(5 * time.Millisecond)
			if !yield(sampler.Sample{}) {
				return
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), "256.0.0.1:bad", seq) }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected listen error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after listen failure")
	}
}
