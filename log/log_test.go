package log

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	"github.com/sagernet/sing/common/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	access sync.Mutex
	lines  []string
	closed bool
}

func (c *recordingChannel) Write(line string) {
	c.access.Lock()
	defer c.access.Unlock()
	c.lines = append(c.lines, line)
}

func (c *recordingChannel) Close() error {
	c.access.Lock()
	defer c.access.Unlock()
	c.closed = true
	return nil
}

func (c *recordingChannel) Lines() []string {
	c.access.Lock()
	defer c.access.Unlock()
	return append([]string(nil), c.lines...)
}

func TestLevel_Ordering(t *testing.T) {
	assert.Less(t, LevelDebug, LevelInfo)
	assert.Less(t, LevelInfo, LevelWarning)
	assert.Less(t, LevelWarning, LevelCritical)
}

func TestLevel_ParseAliases(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"trace", LevelDebug},
		{"INFO", LevelInfo},
		{"log", LevelInfo},
		{"warn", LevelWarning},
		{"warning", LevelWarning},
		{"error", LevelCritical},
		{" critical ", LevelCritical},
	}
	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, level, tt.input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevel_TextRoundTrip(t *testing.T) {
	record := NewTextRecord(LevelWarning, "careful")
	content, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","level":"warning","data":"careful"}`, string(content))

	var decoded Record
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, record, decoded)
}

func TestErrorEvent_Format(t *testing.T) {
	event := NewErrorEvent("boom").
		WithLocation("http://localhost/app.js", 12, 4).
		WithValue("TypeError: boom")
	assert.Equal(t, "http://localhost/app.js:12 boom\nTypeError: boom", event.Format())

	record := event.ToRecord()
	assert.Equal(t, LevelCritical, record.Level)
	assert.Equal(t, KindText, record.Kind)
}

func TestFormatter_DisableColorsAndTimestamp(t *testing.T) {
	formatter := Formatter{DisableColors: true, DisableTimestamp: true}
	message := formatter.Format(LevelInfo, "capture", "hello", time.Now())
	assert.Equal(t, "INFO capture: hello\n", message)

	formatter.DisableLineBreak = true
	assert.Equal(t, "CRITICAL x", formatter.Format(LevelCritical, "", "x\n", time.Now()))
}

func TestNew_LegacyOutputWritesRecords(t *testing.T) {
	var buffer bytes.Buffer
	factory, err := New(Options{
		Options: option.LogOptions{
			Level:        "info",
			DisableColor: true,
		},
		DefaultWriter: &buffer,
		BaseTime:      time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, factory.Start())

	factory.Log(NewTextRecord(LevelDebug, "hidden"))
	factory.Log(NewTextRecord(LevelWarning, "shown"))
	factory.NewLogger("relay").Info("started on ", 8888)
	require.NoError(t, factory.Close())

	output := buffer.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "WARNING")
	assert.Contains(t, output, "shown")
	assert.Contains(t, output, "relay: started on 8888")
}

func TestNew_ChannelOutputFormats(t *testing.T) {
	channel := &recordingChannel{}
	registry := NewRegistry(10)
	factory, err := New(Options{
		Options: option.LogOptions{
			Outputs: []option.LogOutput{
				{Type: "channel", Format: "json", Hostname: "lab"},
			},
		},
		Channel:  channel,
		Registry: registry,
	})
	require.NoError(t, err)

	factory.Log(NewTextRecord(LevelCritical, "failure"))

	lines := channel.Lines()
	require.Len(t, lines, 1)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "critical", doc["level"])
	assert.Equal(t, "failure", doc["data"])
	assert.Equal(t, "text", doc["type"])
	assert.Equal(t, map[string]any{"hostname": "lab"}, doc["host"])

	require.Equal(t, 1, registry.Length())
	require.NoError(t, factory.Close())
	assert.True(t, channel.closed)
}

func TestNew_ImplicitChannelOutput(t *testing.T) {
	channel := &recordingChannel{}
	var buffer bytes.Buffer
	factory, err := New(Options{
		Options:       option.LogOptions{DisableColor: true},
		DefaultWriter: &buffer,
		Channel:       channel,
		ChannelFormat: "json",
	})
	require.NoError(t, err)

	factory.Log(NewTextRecord(LevelInfo, "both"))
	lines := channel.Lines()
	require.NoError(t, factory.Close())
	assert.Contains(t, buffer.String(), "both")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"data":"both"`)
}

func TestNew_ChannelOutputText(t *testing.T) {
	channel := &recordingChannel{}
	output, err := NewChannelOutput(channel, "", "", "")
	require.NoError(t, err)
	require.NoError(t, output.Write(Entry{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Record:    NewTextRecord(LevelInfo, "line"),
	}))
	lines := channel.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "INFO line"), lines[0])
	assert.NotContains(t, lines[0], "\n")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Options: option.LogOptions{Level: "loud"}})
	assert.Error(t, err)

	_, err = New(Options{Options: option.LogOptions{Outputs: []option.LogOutput{{Type: "channel"}}}})
	assert.Error(t, err)

	_, err = New(Options{Options: option.LogOptions{Outputs: []option.LogOutput{{Type: "file"}}}})
	assert.Error(t, err)

	_, err = New(Options{Options: option.LogOptions{Outputs: []option.LogOutput{{Type: "syslog"}}}})
	assert.Error(t, err)

	_, err = NewChannelOutput(&recordingChannel{}, "xml", "", "")
	assert.Error(t, err)
}

func TestNew_Disabled(t *testing.T) {
	factory, err := New(Options{Options: option.LogOptions{Disabled: true}})
	require.NoError(t, err)
	factory.Log(NewTextRecord(LevelCritical, "dropped"))
	factory.Logger().Error("dropped")
	_, _, err = factory.Subscribe()
	assert.Error(t, err)
}

func TestFactory_Observable(t *testing.T) {
	factory := NewMultiOutputFactory(nil, true)
	subscription, done, err := factory.Subscribe()
	require.NoError(t, err)
	defer factory.UnSubscribe(subscription)

	factory.Log(NewTextRecord(LevelInfo, "observed"))

	select {
	case entry := <-subscription:
		assert.Equal(t, "observed", entry.Data)
	case <-done:
		t.Fatal("observer closed")
	case <-time.After(time.Second):
		t.Fatal("no entry observed")
	}
}

func TestJSONOutput_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "js.log")
	output := NewJSONOutput(nil, path, "", "1.0.0")
	require.NoError(t, output.Write(Entry{Record: NewTextRecord(LevelInfo, "before start")}))
	require.NoError(t, output.Start())
	require.NoError(t, output.Write(Entry{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tag:       "capture",
		Record:    NewTextRecord(LevelWarning, "written"),
	}))
	require.NoError(t, output.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"@timestamp": "2026-01-02T03:04:05Z",
		"type": "text",
		"level": "warning",
		"tag": "capture",
		"data": "written",
		"host": {"version": "1.0.0"}
	}`, string(content))
}

type blockingWriter struct {
	release chan struct{}
	access  sync.Mutex
	content bytes.Buffer
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	w.access.Lock()
	defer w.access.Unlock()
	return w.content.Write(p)
}

func TestFormattedOutput_SlowWriterDoesNotBlock(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{})}
	output := NewFormattedOutput(Formatter{DisableColors: true, DisableTimestamp: true}, writer, "")

	written := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			_ = output.Write(Entry{Record: NewTextRecord(LevelInfo, fmt.Sprint("line ", i))})
		}
		close(written)
	}()
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("write blocked on a stalled writer")
	}

	close(writer.release)
	require.NoError(t, output.Close())
	assert.Equal(t, "INFO line 0\nINFO line 1\nINFO line 2\n", writer.content.String())
	assert.Zero(t, output.Dropped())
	require.NoError(t, output.Write(Entry{Record: NewTextRecord(LevelInfo, "after close")}))
	assert.NotContains(t, writer.content.String(), "after close")
}

func TestNew_DisabledObserver(t *testing.T) {
	factory := NewMultiOutputFactory(nil, false)
	_, _, err := factory.Subscribe()
	assert.ErrorIs(t, err, ErrObserverDisabled)

	nop, err := New(Options{Options: option.LogOptions{Disabled: true}})
	require.NoError(t, err)
	_, _, err = nop.Subscribe()
	assert.ErrorIs(t, err, ErrObserverDisabled)
}
