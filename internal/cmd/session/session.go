// Package session opens the adapter shared by all command bodies.
package session

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartobd/internal/config"
	"smartobd/internal/diag"
	"smartobd/internal/dtc"
	"smartobd/internal/obd"
	"smartobd/internal/obd/elm327"
	"smartobd/internal/obd/mock"
	"smartobd/internal/ui"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MockPort is the port name reported by the simulated adapter.
const MockPort = "mock"

// Session is one open connection and the scanner on top of it.
type Session struct {
	Port    string
	Conn    *obd.Connection
	Scanner *diag.Scanner
}

// New wraps an initialized adapter.
func New(a obd.Adapter, port string, baud int, timeout time.Duration, catalog *dtc.Catalog) *Session {
	conn := obd.NewConnection(a, port, baud, obd.WithTimeout(timeout))
	return &Session{
		Port:    port,
		Conn:    conn,
		Scanner: diag.NewScanner(conn, nil, catalog),
	}
}

// Open connects according to cfg: the simulated adapter with Mock, the
// given port, or the first ELM327 found when no port is set.
func Open(ctx context.Context, cfg config.Config) (*Session, error) {
	catalog := loadCatalog(cfg.DTCCatalog)

	if cfg.Mock {
		a := mock.New(
			mock.WithVIN("WVWZZZ1JZXW000001"),
			mock.WithDTCs("P0301", "P0420"),
			mock.WithPendingDTCs("P0171"),
			mock.WithFaultRate(0.05),
		)
		return New(a, MockPort, cfg.Baud, cfg.Timeout, catalog), nil
	}

	var (
		a   *elm327.Adapter
		err error
	)
	if cfg.Port == "" {
		a, err = elm327.Discover(ctx, cfg.ELM())
	} else {
		a, err = elm327.Open(ctx, cfg.ELM())
	}
	if err != nil {
		return nil, err
	}
	return New(a, a.Port(), a.Baud(), cfg.Timeout, catalog), nil
}

func (s *Session) Close() {
	if err := s.Conn.Close(); err != nil {
		log.Warn("failed to close adapter", zap.String("port", s.Port), zap.Error(err))
	}
}

func loadCatalog(path string) *dtc.Catalog {
	if path == "" {
		return nil
	}
	c, err := dtc.LoadCatalog(path)
	if err != nil {
		log.Warn("failed to load DTC catalog, using built-in descriptions",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	log.Debug("DTC catalog loaded", zap.String("path", path), zap.Int("codes", c.Len()))
	return c
}

// Start loads the configuration, connects and prints the adapter status.
// A configuration or connection error ends the process. The returned
// context is cancelled on SIGINT/SIGTERM; done closes the session.
func Start(cmd *cobra.Command) (s *Session, ctx context.Context, done func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		stop()
		log.Fatal("invalid configuration", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	s, err = Open(ctx, cfg)
	if err != nil {
		port := cfg.Port
		if port == "" {
			port = "auto"
		}
		fmt.Fprintln(out, ui.StatusLine(port, obd.NotConnected))
		stop()
		log.Fatal("failed to connect to adapter", zap.Error(err))
	}
	fmt.Fprintln(out, ui.StatusLine(s.Port, s.Conn.Status()))

	return s, ctx, func() {
		s.Close()
		stop()
	}
}
