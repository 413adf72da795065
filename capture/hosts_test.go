package capture

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestInterceptor() (*Interceptor, *recordSink) {
	pipeline := NewPipeline()
	sink := &recordSink{}
	pipeline.AttachSink(sink)
	return NewInterceptor(pipeline, nil), sink
}

func TestSlogHandler(t *testing.T) {
	interceptor, sink := newTestInterceptor()
	var buffer bytes.Buffer
	inner := slog.NewTextHandler(&buffer, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewSlogHandler(inner, interceptor))

	logger.With("app", "lab").WithGroup("req").Info("hello", "id", 7)
	logger.Error("failed", "err", "timeout")

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, log.LevelInfo, records[0].Level)
	assert.Equal(t, "hello app=lab req.id=7", records[0].Data)
	assert.Equal(t, log.LevelCritical, records[1].Level)
	assert.Equal(t, "failed err=timeout", records[1].Data)

	assert.NotContains(t, buffer.String(), "hello")
	assert.Contains(t, buffer.String(), "failed")
}

func TestZapCore(t *testing.T) {
	interceptor, sink := newTestInterceptor()
	var buffer bytes.Buffer
	inner := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buffer),
		zapcore.InfoLevel,
	)
	logger := zap.New(NewZapCore(inner, interceptor)).With(zap.String("app", "lab"))

	logger.Debug("hidden", zap.Int("n", 1))
	logger.Warn("careful", zap.Bool("retry", true))
	require.NoError(t, logger.Sync())

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, log.LevelDebug, records[0].Level)
	assert.Equal(t, "hidden app=lab n=1", records[0].Data)
	assert.Equal(t, log.LevelWarning, records[1].Level)
	assert.Equal(t, "careful app=lab retry=true", records[1].Data)

	assert.NotContains(t, buffer.String(), "hidden")
	assert.Contains(t, buffer.String(), "careful")
}

func TestWrapLogger(t *testing.T) {
	interceptor, sink := newTestInterceptor()
	logger := WrapLogger(nil, interceptor)

	logger.Info("started on ", 8888)
	logger.Trace("verbose")
	logger.Error("lost connection")

	records := sink.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "started on 8888", records[0].Data)
	assert.Equal(t, log.LevelInfo, records[0].Level)
	assert.Equal(t, log.LevelDebug, records[1].Level)
	assert.Equal(t, log.LevelCritical, records[2].Level)
}
