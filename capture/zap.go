package capture

import (
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

var _ zapcore.Core = (*zapCore)(nil)

type zapCore struct {
	inner       zapcore.Core
	interceptor *Interceptor
	fields      []zapcore.Field
}

// NewZapCore wraps inner so every entry written through a zap logger is
// captured as well. Capture ignores the inner core's level.
func NewZapCore(inner zapcore.Core, interceptor *Interceptor) zapcore.Core {
	if inner == nil {
		inner = zapcore.NewNopCore()
	}
	return &zapCore{
		inner:       inner,
		interceptor: interceptor,
	}
}

func (c *zapCore) Enabled(level zapcore.Level) bool {
	return true
}

func (c *zapCore) With(fields []zapcore.Field) zapcore.Core {
	return &zapCore{
		inner:       c.inner.With(fields),
		interceptor: c.interceptor,
		fields:      append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

func (c *zapCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c *zapCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var builder strings.Builder
	if entry.LoggerName != "" {
		builder.WriteString(entry.LoggerName)
		builder.WriteString(": ")
	}
	builder.WriteString(entry.Message)
	encoder := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(encoder)
	}
	for _, field := range fields {
		field.AddTo(encoder)
	}
	keys := make([]string, 0, len(encoder.Fields))
	for key := range encoder.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		builder.WriteByte(' ')
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(FormatArg(encoder.Fields[key]))
	}
	c.interceptor.CaptureMessage(zapMethod(entry.Level), builder.String())
	if c.inner.Enabled(entry.Level) {
		return c.inner.Write(entry, fields)
	}
	return nil
}

func (c *zapCore) Sync() error {
	return c.inner.Sync()
}

func zapMethod(level zapcore.Level) Method {
	switch {
	case level < zapcore.InfoLevel:
		return MethodDebug
	case level < zapcore.WarnLevel:
		return MethodInfo
	case level < zapcore.ErrorLevel:
		return MethodWarn
	default:
		return MethodError
	}
}
