package authorization

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Void is the result of operations that return nothing but an error.
type Void struct{}

// CallObserver receives the start and end of every traced call.
// AfterCall runs exactly once per invocation.
type CallObserver interface {
	BeforeCall(ctx context.Context, class, method string, args []any)
	AfterCall(ctx context.Context, class, method string, result any, err error)
}

// Trace records every call through observer. Errors pass through
// unchanged; a panic is reported as an error and then re-raised with
// its original value.
func Trace[Req, Res any](observer CallObserver, class, method string) Guard[Req, Res] {
	return func(next Operation[Req, Res]) Operation[Req, Res] {
		return func(ctx context.Context, caller Principal, req Req) (res Res, err error) {
			observer.BeforeCall(ctx, class, method, []any{caller.ID, req})
			returned := false
			defer func() {
				if returned {
					return
				}
				r := recover()
				if r == nil {
					// runtime.Goexit
					observer.AfterCall(ctx, class, method, nil, fmt.Errorf("call aborted"))
					return
				}
				observer.AfterCall(ctx, class, method, nil, fmt.Errorf("panic: %v", r))
				panic(r)
			}()
			res, err = next(ctx, caller, req)
			returned = true
			observer.AfterCall(ctx, class, method, res, err)
			return res, err
		}
	}
}

// LogObserver writes traced calls to a zerolog logger at debug level,
// failures at warn.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "tracer").Logger()}
}

func (o *LogObserver) BeforeCall(ctx context.Context, class, method string, args []any) {
	o.logger.Debug().
		Ctx(ctx).
		Str("class", class).
		Str("method", method).
		Interface("args", args).
		Msg("call started")
}

func (o *LogObserver) AfterCall(ctx context.Context, class, method string, result any, err error) {
	if err != nil {
		o.logger.Warn().
			Ctx(ctx).
			Str("class", class).
			Str("method", method).
			Err(err).
			Msg("call failed")
		return
	}
	ev := o.logger.Debug().Ctx(ctx).Str("class", class).Str("method", method)
	if _, ok := result.(Void); ok {
		ev = ev.Str("result", "void")
	} else {
		ev = ev.Interface("result", result)
	}
	ev.Msg("call finished")
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) BeforeCall(context.Context, string, string, []any)    {}
func (NopObserver) AfterCall(context.Context, string, string, any, error) {}
