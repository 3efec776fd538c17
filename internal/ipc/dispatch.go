package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

type outcome struct {
	result any
	err    error
}

// Dispatch invokes channel with args. Exactly one of the return values is
// non-nil on return, except for handlers that legitimately return nil.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (any, *Envelope) {
	start := r.now()

	ch, ok := r.lookup(name)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownMethod, name)
		if !r.Ready() {
			err = fmt.Errorf("%w: application is still initializing", ErrUnavailable)
		}
		return nil, r.fail(name, err, start)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(ch))
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("ipc handler panicked",
					zap.String("channel", name),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()),
				)
				done <- outcome{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		result, err := ch.route.Endpoint.Handler(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		return nil, r.fail(name, out.err, start)
	}

	elapsed := r.now().Sub(start)
	r.metrics.ObserveIPC(name, codeOK, elapsed)
	r.log.Debug("ipc call", zap.String("channel", name), zap.Duration("elapsed", elapsed))
	return out.result, nil
}

func (r *Registry) fail(name string, err error, start time.Time) *Envelope {
	now := r.now()
	envelope := NewEnvelope(name, err, now)
	r.metrics.ObserveIPC(name, string(envelope.Code), now.Sub(start))

	fields := []zap.Field{
		zap.String("channel", name),
		zap.String("code", string(envelope.Code)),
		zap.Duration("elapsed", now.Sub(start)),
		zap.Error(err),
	}
	if envelope.Code == CodeInternal {
		r.log.Error("ipc call failed", fields...)
	} else {
		r.log.Info("ipc call rejected", fields...)
	}
	return envelope
}
