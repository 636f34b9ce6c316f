package obd

import (
	"context"

	"smartobd/pkg/log"

	"go.uber.org/zap"
)

// Sender issues one PID request and returns the adapter's raw reply.
type Sender interface {
	Send(ctx context.Context, pid PID) (string, error)
}

// Query sends pid and decodes the reply. Every failure short of a broken
// connection comes back as an absent Result; the cause is logged at debug
// level.
func Query(ctx context.Context, s Sender, pid PID) Result {
	raw, err := s.Send(ctx, pid)
	if err != nil {
		log.Debug("query failed", zap.Stringer("pid", pid.Name), zap.Error(err))
		return absent()
	}

	if pid.Acknowledge() {
		if !accepted(pid, raw) {
			log.Debug("command not acknowledged", zap.Stringer("pid", pid.Name), zap.String("raw", raw))
			return absent()
		}
		return Result{Present: true}
	}

	frames, err := parseFrames(pid.String(), raw)
	if err != nil {
		log.Debug("no usable frames", zap.Stringer("pid", pid.Name), zap.String("raw", raw), zap.Error(err))
		return absent()
	}
	data, err := payload(pid, frames)
	if err != nil {
		log.Debug("unexpected frames", zap.Stringer("pid", pid.Name), zap.String("raw", raw), zap.Error(err))
		return absent()
	}
	v, err := pid.Decode(data)
	if err != nil {
		log.Debug("decode failed", zap.Stringer("pid", pid.Name), zap.Error(err))
		return absent()
	}
	return present(v)
}
