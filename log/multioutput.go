package log

import (
	"context"
	"sync"
	"time"

	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
	"github.com/sagernet/sing/common/observable"
)

var _ ObservableFactory = (*multiOutputFactory)(nil)

// multiOutputFactory implements a factory that writes to multiple outputs
type multiOutputFactory struct {
	outputs        []Output
	needObservable bool
	access         sync.Mutex
	level          Level
	now            func() time.Time
	subscriber     *observable.Subscriber[Entry]
	observer       *observable.Observer[Entry]
}

// NewMultiOutputFactory creates a new multi-output factory
func NewMultiOutputFactory(outputs []Output, needObservable bool) ObservableFactory {
	factory := &multiOutputFactory{
		outputs:        outputs,
		needObservable: needObservable,
		level:          LevelDebug,
		now:            time.Now,
		subscriber:     observable.NewSubscriber[Entry](128),
	}
	if needObservable {
		factory.observer = observable.NewObserver[Entry](factory.subscriber, 64)
	}
	return factory
}

// Start initializes all outputs
func (f *multiOutputFactory) Start() error {
	for _, output := range f.outputs {
		if starter, ok := output.(interface{ Start() error }); ok {
			if err := starter.Start(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes all outputs
func (f *multiOutputFactory) Close() error {
	var errors []error
	for _, output := range f.outputs {
		if err := output.Close(); err != nil {
			errors = append(errors, err)
		}
	}
	if err := f.subscriber.Close(); err != nil {
		errors = append(errors, err)
	}
	return E.Errors(errors...)
}

// Level returns the current log level
func (f *multiOutputFactory) Level() Level {
	f.access.Lock()
	defer f.access.Unlock()
	return f.level
}

// SetLevel sets the log level
func (f *multiOutputFactory) SetLevel(level Level) {
	f.access.Lock()
	defer f.access.Unlock()
	f.level = level
}

// Log accepts a captured record from the pipeline
func (f *multiOutputFactory) Log(record Record) {
	f.write("", record)
}

// Logger returns a logger without a tag
func (f *multiOutputFactory) Logger() ContextLogger {
	return f.NewLogger("")
}

// NewLogger returns a logger with a tag
func (f *multiOutputFactory) NewLogger(tag string) ContextLogger {
	return &multiOutputLogger{
		factory: f,
		tag:     tag,
	}
}

// Subscribe subscribes to log entries (for observable pattern)
func (f *multiOutputFactory) Subscribe() (subscription observable.Subscription[Entry], done <-chan struct{}, err error) {
	if f.observer == nil {
		return nil, nil, ErrObserverDisabled
	}
	return f.observer.Subscribe()
}

// UnSubscribe unsubscribes from log entries
func (f *multiOutputFactory) UnSubscribe(sub observable.Subscription[Entry]) {
	if f.observer != nil {
		f.observer.UnSubscribe(sub)
	}
}

// write stamps the record and hands it to every output in order. Output
// errors are dropped: a failing output must not break the host.
func (f *multiOutputFactory) write(tag string, record Record) {
	f.access.Lock()
	defer f.access.Unlock()
	if record.Level < f.level {
		return
	}
	entry := Entry{
		Timestamp: f.now(),
		Tag:       tag,
		Record:    record,
	}
	for _, output := range f.outputs {
		_ = output.Write(entry)
	}
	if f.needObservable {
		f.subscriber.Emit(entry)
	}
}

// multiOutputLogger implements ContextLogger for the multi-output factory
type multiOutputLogger struct {
	factory *multiOutputFactory
	tag     string
}

// Log logs a message with the given level
func (l *multiOutputLogger) Log(ctx context.Context, level Level, args []any) {
	l.factory.write(l.tag, NewTextRecord(level, F.ToString(args...)))
}

// Convenience methods

func (l *multiOutputLogger) Trace(args ...any) {
	l.TraceContext(context.Background(), args...)
}

func (l *multiOutputLogger) Debug(args ...any) {
	l.DebugContext(context.Background(), args...)
}

func (l *multiOutputLogger) Info(args ...any) {
	l.InfoContext(context.Background(), args...)
}

func (l *multiOutputLogger) Warn(args ...any) {
	l.WarnContext(context.Background(), args...)
}

func (l *multiOutputLogger) Error(args ...any) {
	l.ErrorContext(context.Background(), args...)
}

func (l *multiOutputLogger) Fatal(args ...any) {
	l.FatalContext(context.Background(), args...)
}

func (l *multiOutputLogger) Panic(args ...any) {
	l.PanicContext(context.Background(), args...)
}

func (l *multiOutputLogger) TraceContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelDebug, args)
}

func (l *multiOutputLogger) DebugContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelDebug, args)
}

func (l *multiOutputLogger) InfoContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelInfo, args)
}

func (l *multiOutputLogger) WarnContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelWarning, args)
}

func (l *multiOutputLogger) ErrorContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelCritical, args)
}

func (l *multiOutputLogger) FatalContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelCritical, args)
}

func (l *multiOutputLogger) PanicContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelCritical, args)
}
