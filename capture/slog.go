package capture

import (
	"context"
	"log/slog"
	"strings"
)

var _ slog.Handler = (*SlogHandler)(nil)

// SlogHandler captures every slog record and passes it on to an inner
// handler.
type SlogHandler struct {
	inner       slog.Handler
	interceptor *Interceptor
	attrs       []string
	group       string
}

func NewSlogHandler(inner slog.Handler, interceptor *Interceptor) *SlogHandler {
	return &SlogHandler{
		inner:       inner,
		interceptor: interceptor,
	}
}

// Enabled is always true: capture sees records the inner handler would
// discard.
func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *SlogHandler) Handle(ctx context.Context, record slog.Record) error {
	var builder strings.Builder
	builder.WriteString(record.Message)
	for _, attr := range h.attrs {
		builder.WriteByte(' ')
		builder.WriteString(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		for _, rendered := range renderAttr(h.group, attr) {
			builder.WriteByte(' ')
			builder.WriteString(rendered)
		}
		return true
	})
	h.interceptor.CaptureMessage(slogMethod(record.Level), builder.String())
	if h.inner != nil && h.inner.Enabled(ctx, record.Level) {
		return h.inner.Handle(ctx, record)
	}
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	handler := *h
	handler.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		handler.attrs = append(handler.attrs, renderAttr(h.group, attr)...)
	}
	if h.inner != nil {
		handler.inner = h.inner.WithAttrs(attrs)
	}
	return &handler
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	handler := *h
	handler.group = joinKey(h.group, name)
	if h.inner != nil {
		handler.inner = h.inner.WithGroup(name)
	}
	return &handler
}

func renderAttr(group string, attr slog.Attr) []string {
	value := attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return nil
	}
	if value.Kind() == slog.KindGroup {
		var rendered []string
		prefix := group
		if attr.Key != "" {
			prefix = joinKey(group, attr.Key)
		}
		for _, member := range value.Group() {
			rendered = append(rendered, renderAttr(prefix, member)...)
		}
		return rendered
	}
	return []string{joinKey(group, attr.Key) + "=" + FormatArg(value.Any())}
}

func joinKey(group string, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func slogMethod(level slog.Level) Method {
	switch {
	case level < slog.LevelInfo:
		return MethodDebug
	case level < slog.LevelWarn:
		return MethodInfo
	case level < slog.LevelError:
		return MethodWarn
	default:
		return MethodError
	}
}
