// Package sampler polls a fixed set of fields at a bounded rate.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"smartobd/internal/obd"
	"smartobd/pkg/log"

	"go.uber.org/zap"
)

// Reader reads one field by name.
type Reader interface {
	Read(ctx context.Context, field string) obd.Result
}

// Sample is the outcome of one tick. Values holds an entry for every
// field, absent when the vehicle did not answer in time.
type Sample struct {
	Elapsed float64              `json:"t"`
	Fields  []string             `json:"fields"`
	Values  map[string]obd.Value `json:"values"`
}

// Value returns the value of field, absent when unknown.
func (s Sample) Value(field string) obd.Value {
	return s.Values[field]
}

type Sampler struct {
	reader   Reader
	fields   []string
	interval time.Duration
}

// New returns a sampler polling fields hz times per second.
func New(reader Reader, fields []string, hz float64) (*Sampler, error) {
	if reader == nil {
		return nil, errors.New("sampler: nil reader")
	}
	if len(fields) == 0 {
		return nil, errors.New("sampler: no fields")
	}
	if hz <= 0 {
		return nil, fmt.Errorf("sampler: rate must be positive, got %v", hz)
	}
	return &Sampler{
		reader:   reader,
		fields:   append([]string(nil), fields...),
		interval: time.Duration(float64(time.Second) / hz),
	}, nil
}

func (s *Sampler) Fields() []string {
	return append([]string(nil), s.fields...)
}

func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// Run yields one Sample per tick until duration has elapsed (0 means no
// bound, a negative duration yields nothing), ctx is cancelled or the
// consumer stops. Each call starts its
// own elapsed time origin. Cancellation is only checked between ticks:
// the queries of a tick run to completion, each bounded by the
// connection timeout.
func (s *Sampler) Run(ctx context.Context, duration time.Duration) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		if duration < 0 {
			return
		}
		queryCtx := context.WithoutCancel(ctx)
		start := time.Now()
		ticks := 0

		for {
			if ctx.Err() != nil {
				log.Debug("sampling cancelled", zap.Int("ticks", ticks))
				return
			}
			tickStart := time.Now()
			elapsed := tickStart.Sub(start)
			if duration > 0 && elapsed >= duration {
				return
			}

			sample := Sample{
				Elapsed: elapsed.Seconds(),
				Fields:  s.fields,
				Values:  make(map[string]obd.Value, len(s.fields)),
			}
			for _, f := range s.fields {
				sample.Values[f] = s.reader.Read(queryCtx, f).Value
			}
			ticks++
			if !yield(sample) {
				return
			}

			if wait := s.interval - time.Since(tickStart); wait > 0 {
				sleepCtx(ctx, wait)
			}
		}
	}
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
