// Package ctxutil carries request scoped identity through engine calls so
// import runs and log lines can be tied back to the request and operator.
package ctxutil

import "context"

type (
	traceKey  struct{}
	callerKey struct{}
)

// TraceData correlates log lines and import runs with the request that caused them.
type TraceData struct {
	TraceID   string
	RequestID string
}

// CallerData identifies the authenticated operator of a mutation.
type CallerData struct {
	Subject string
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	return value[*TraceData](ctx, traceKey{})
}

func WithCallerData(ctx context.Context, cd *CallerData) context.Context {
	return context.WithValue(Default(ctx), callerKey{}, cd)
}

func GetCallerData(ctx context.Context) *CallerData {
	return value[*CallerData](ctx, callerKey{})
}

func value[T any](ctx context.Context, key any) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}
