// Package live holds the commands built on the sampling loop.
package live

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"smartobd/internal/cmd/session"
	"smartobd/internal/csvlog"
	"smartobd/internal/diag"
	"smartobd/internal/obd"
	"smartobd/internal/sampler"
	"smartobd/internal/stream"
	"smartobd/internal/ui"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultFields are polled when --pids is not given.
var DefaultFields = []string{"rpm", "speed", "temp", "voltage"}

// Options are the sampling flags shared by live, log, dashboard and
// stream.
type Options struct {
	Fields   []string
	Hz       float64
	Duration time.Duration // 0 runs until interrupted
}

// ReadOptions reads --pids, --hz and --secs from cmd.
func ReadOptions(cmd *cobra.Command) Options {
	fields, _ := cmd.Flags().GetStringSlice("pids")
	hz, _ := cmd.Flags().GetFloat64("hz")
	secs, _ := cmd.Flags().GetFloat64("secs")
	return Options{
		Fields:   Fields(fields),
		Hz:       hz,
		Duration: time.Duration(secs * float64(time.Second)),
	}
}

// Fields cleans a --pids list. Empty entries are dropped and an empty
// list means DefaultFields.
func Fields(raw []string) []string {
	var out []string
	for _, f := range raw {
		for _, part := range strings.Split(f, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultFields...)
	}
	return out
}

// NewSampler builds the sampler for opts, warning about fields that are
// not live readings: those stay in the output as empty values and are
// never sent to the adapter.
func NewSampler(s *diag.Scanner, opts Options) (*sampler.Sampler, error) {
	if opts.Duration < 0 {
		return nil, fmt.Errorf("duration must not be negative, got %v", opts.Duration)
	}
	if st := s.Status(); st != obd.OBDConnected {
		log.Warn("vehicle not connected, readings will be empty", zap.Stringer("status", st))
	}
	for _, f := range opts.Fields {
		if err := s.CheckField(f); err != nil {
			log.Warn("field will always be empty", zap.String("field", f), zap.Error(err))
		}
	}
	return sampler.New(s, opts.Fields, opts.Hz)
}

func Live(cmd *cobra.Command, args []string) {
	opts := ReadOptions(cmd)
	s, ctx, done := session.Start(cmd)
	defer done()

	if err := printLive(ctx, cmd.OutOrStdout(), s.Scanner, opts); err != nil {
		done()
		log.Fatal("live readings failed", zap.Error(err))
	}
}

func Log(cmd *cobra.Command, args []string) {
	opts := ReadOptions(cmd)
	path, _ := cmd.Flags().GetString("csv")
	s, ctx, done := session.Start(cmd)
	defer done()

	if err := logCSV(ctx, cmd.OutOrStdout(), s.Scanner, opts, path); err != nil {
		done()
		log.Fatal("logging failed", zap.String("path", path), zap.Error(err))
	}
}

func Stream(cmd *cobra.Command, args []string) {
	opts := ReadOptions(cmd)
	listen, _ := cmd.Flags().GetString("listen")
	s, ctx, done := session.Start(cmd)
	defer done()

	smp, err := NewSampler(s.Scanner, opts)
	if err != nil {
		done()
		log.Fatal("invalid sampling options", zap.Error(err))
	}
	srv := stream.New(s.Conn.Status(), s.Port)
	fmt.Fprintln(cmd.OutOrStdout(), ui.Field("Streaming", "ws://"+displayAddr(listen)+"/ws"))
	if err := srv.Run(ctx, listen, smp.Run(ctx, opts.Duration)); err != nil {
		done()
		log.Fatal("stream server failed", zap.Error(err))
	}
}

func printLive(ctx context.Context, w io.Writer, s *diag.Scanner, opts Options) error {
	smp, err := NewSampler(s, opts)
	if err != nil {
		return err
	}
	for sample := range smp.Run(ctx, opts.Duration) {
		fmt.Fprintln(w, formatSample(sample))
	}
	return nil
}

func formatSample(sample sampler.Sample) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "t=%6.2fs", sample.Elapsed)
	for _, f := range sample.Fields {
		v := sample.Value(f)
		text := v.String()
		if v.IsAbsent() {
			text = ui.NotAvailable
		}
		fmt.Fprintf(&sb, "  %s=%s", f, text)
	}
	return sb.String()
}

func logCSV(ctx context.Context, w io.Writer, s *diag.Scanner, opts Options, path string) error {
	smp, err := NewSampler(s, opts)
	if err != nil {
		return err
	}
	cw, err := csvlog.Create(path, opts.Fields)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, ui.Field("Logging to", path))
	for sample := range smp.Run(ctx, opts.Duration) {
		if err := cw.Write(sample); err != nil {
			cw.Close()
			return err
		}
	}
	if err := cw.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w, ui.Field("Rows", fmt.Sprint(cw.Rows())))
	return nil
}

func displayAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
