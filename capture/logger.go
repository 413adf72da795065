package capture

import (
	"context"

	F "github.com/sagernet/sing/common/format"
	"github.com/sagernet/sing/common/logger"
)

var _ logger.ContextLogger = (*captureLogger)(nil)

type captureLogger struct {
	inner       logger.ContextLogger
	interceptor *Interceptor
}

// WrapLogger captures every message written through inner. Messages are
// joined the way sing loggers join them, without separators.
func WrapLogger(inner logger.ContextLogger, interceptor *Interceptor) logger.ContextLogger {
	if inner == nil {
		inner = logger.NOP()
	}
	return &captureLogger{inner, interceptor}
}

func (l *captureLogger) capture(method Method, args []any) {
	defer func() {
		_ = recover()
	}()
	l.interceptor.CaptureMessage(method, F.ToString(args...))
}

func (l *captureLogger) Trace(args ...any) {
	l.capture(MethodDebug, args)
	l.inner.Trace(args...)
}

func (l *captureLogger) Debug(args ...any) {
	l.capture(MethodDebug, args)
	l.inner.Debug(args...)
}

func (l *captureLogger) Info(args ...any) {
	l.capture(MethodInfo, args)
	l.inner.Info(args...)
}

func (l *captureLogger) Warn(args ...any) {
	l.capture(MethodWarn, args)
	l.inner.Warn(args...)
}

func (l *captureLogger) Error(args ...any) {
	l.capture(MethodError, args)
	l.inner.Error(args...)
}

func (l *captureLogger) Fatal(args ...any) {
	l.capture(MethodError, args)
	l.inner.Fatal(args...)
}

func (l *captureLogger) Panic(args ...any) {
	l.capture(MethodError, args)
	l.inner.Panic(args...)
}

func (l *captureLogger) TraceContext(ctx context.Context, args ...any) {
	l.capture(MethodDebug, args)
	l.inner.TraceContext(ctx, args...)
}

func (l *captureLogger) DebugContext(ctx context.Context, args ...any) {
	l.capture(MethodDebug, args)
	l.inner.DebugContext(ctx, args...)
}

func (l *captureLogger) InfoContext(ctx context.Context, args ...any) {
	l.capture(MethodInfo, args)
	l.inner.InfoContext(ctx, args...)
}

func (l *captureLogger) WarnContext(ctx context.Context, args ...any) {
	l.capture(MethodWarn, args)
	l.inner.WarnContext(ctx, args...)
}

func (l *captureLogger) ErrorContext(ctx context.Context, args ...any) {
	l.capture(MethodError, args)
	l.inner.ErrorContext(ctx, args...)
}

func (l *captureLogger) FatalContext(ctx context.Context, args ...any) {
	l.capture(MethodError, args)
	l.inner.FatalContext(ctx, args...)
}

func (l *captureLogger) PanicContext(ctx context.Context, args ...any) {
	l.capture(MethodError, args)
	l.inner.PanicContext(ctx, args...)
}
