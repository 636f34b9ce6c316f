// Package stream broadcasts live samples to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"smartobd/internal/obd"
	"smartobd/internal/sampler"
	"smartobd/pkg/log"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientBuffer is the number of frames queued per client before new
// frames are dropped for it.
const clientBuffer = 64

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	sampler.Sample
	Stamp int64 `json:"stamp"` // Unix ms
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Port    string `json:"port"`
	Clients int    `json:"clients"`
	Sent    int64  `json:"samples_sent"`
	Dropped int64  `json:"frames_dropped"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans samples out to WebSocket clients. It never touches the
// adapter: samples are handed to it by the sampling goroutine.
type Server struct {
	status obd.Status
	port   string

	clients   map[*client]struct{}
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader

	sent    atomic.Int64
	dropped atomic.Int64
}

func New(status obd.Status, port string) *Server {
	return &Server{
		status:  status,
		port:    port,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Get("/health", s.handleHealth)
	return r
}

// Clients reports the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast queues sample for every client. Clients whose queue is full
// miss this frame.
func (s *Server) Broadcast(sample sampler.Sample) {
	data, err := json.Marshal(Frame{Sample: sample, Stamp: time.Now().UnixMilli()})
	if err != nil {
		log.Warn("failed to encode frame", zap.Error(err))
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.dropped.Add(1)
		}
	}
	s.sent.Add(1)
}

// Pump broadcasts every sample of seq. It runs on the caller's goroutine
// and returns when seq ends.
func (s *Server) Pump(seq iter.Seq[sampler.Sample]) {
	for sample := range seq {
		s.Broadcast(sample)
	}
}

// Run serves on addr while pumping seq, and shuts the listener down once
// seq ends or ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, seq iter.Seq[sampler.Sample]) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info("stream server listening", zap.String("address", addr))
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			// Stops the pump at the next tick.
			cancel()
		}
		errCh <- err
	}()

	s.Pump(func(yield func(sampler.Sample) bool) {
		for sample := range seq {
			if pumpCtx.Err() != nil || !yield(sample) {
				return
			}
		}
	})

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("stream server shutdown", zap.Error(err))
	}
	s.closeAll()

	return <-errCh
}

func (s *Server) closeAll() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		c.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Info("client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive, detects disconnects)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, c)
			n := len(s.clients)
			s.clientsMu.Unlock()
			close(c.send)
			log.Info("client disconnected", zap.Int("clients", n))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:  s.status.String(),
		Port:    s.port,
		Clients: s.Clients(),
		Sent:    s.sent.Load(),
		Dropped: s.dropped.Load(),
	}
	code := http.StatusOK
	if s.status != obd.OBDConnected {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(h)
}
