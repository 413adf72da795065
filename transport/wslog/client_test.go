package wslog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/common/clock"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type testEndpoint struct {
	server   *httptest.Server
	received chan string
	attempts atomic.Int32
	reject   atomic.Bool

	access sync.Mutex
	conns  []*websocket.Conn
}

func newTestEndpoint(t *testing.T) *testEndpoint {
	endpoint := &testEndpoint{received: make(chan string, 64)}
	endpoint.server = httptest.NewServer(http.HandlerFunc(endpoint.serveHTTP))
	t.Cleanup(endpoint.server.Close)
	return endpoint
}

func (e *testEndpoint) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	e.attempts.Add(1)
	if e.reject.Load() {
		http.Error(writer, "unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(writer, request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.CloseNow()
	e.access.Lock()
	e.conns = append(e.conns, conn)
	e.access.Unlock()
	for {
		_, content, err := conn.Read(context.Background())
		if err != nil {
			return
		}
		e.received <- string(content)
	}
}

func (e *testEndpoint) URL() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/logger/test"
}

func (e *testEndpoint) dropAll() {
	e.access.Lock()
	defer e.access.Unlock()
	for _, conn := range e.conns {
		conn.CloseNow()
	}
	e.conns = nil
}

func (e *testEndpoint) expect(t *testing.T, lines ...string) {
	t.Helper()
	for _, expected := range lines {
		select {
		case line := <-e.received:
			require.Equal(t, expected, line)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", expected)
		}
	}
}

func newTestChannel(t *testing.T, endpoint *testEndpoint, fakeClock *clock.FakeClock, options Options) *Channel {
	options.URL = endpoint.URL()
	options.Clock = fakeClock
	channel, err := NewChannel(options)
	require.NoError(t, err)
	t.Cleanup(func() {
		channel.Close()
	})
	return channel
}

func waitForState(t *testing.T, channel *Channel, state State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return channel.State() == state
	}, 5*time.Second, 5*time.Millisecond, "state %s", state)
}

func TestChannel_FlushesBufferOnOpen(t *testing.T) {
	endpoint := newTestEndpoint(t)
	channel := newTestChannel(t, endpoint, clock.Fake(time.Now()), Options{})

	channel.Write("a")
	channel.Write("b")
	assert.Equal(t, StateConnecting, channel.State())
	assert.Equal(t, 2, channel.Buffered())

	require.NoError(t, channel.Start())
	endpoint.expect(t, "a", "b")
	waitForState(t, channel, StateReady)
	require.Eventually(t, func() bool {
		return channel.Buffered() == 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestChannel_WriteWhileReadyStaysBuffered(t *testing.T) {
	endpoint := newTestEndpoint(t)
	channel := newTestChannel(t, endpoint, clock.Fake(time.Now()), Options{})
	require.NoError(t, channel.Start())
	waitForState(t, channel, StateReady)

	channel.Write("c")
	endpoint.expect(t, "c")
	assert.Equal(t, 1, channel.Buffered())
}

func TestChannel_ReconnectDurability(t *testing.T) {
	endpoint := newTestEndpoint(t)
	fakeClock := clock.Fake(time.Now())
	channel := newTestChannel(t, endpoint, fakeClock, Options{})
	require.NoError(t, channel.Start())
	waitForState(t, channel, StateReady)

	channel.Write("a")
	endpoint.expect(t, "a")

	endpoint.dropAll()
	fakeClock.WaitForTimers(1)
	assert.Equal(t, StateDisconnected, channel.State())
	channel.Write("b")
	channel.Write("c")
	assert.Equal(t, 3, channel.Buffered())

	fakeClock.Advance(time.Second)
	// a was sent while ready and is flushed again
	endpoint.expect(t, "a", "b", "c")
	waitForState(t, channel, StateReady)
	require.Eventually(t, func() bool {
		return channel.Buffered() == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, endpoint.attempts.Load())
}

func TestChannel_FixedBackoff(t *testing.T) {
	endpoint := newTestEndpoint(t)
	endpoint.reject.Store(true)
	fakeClock := clock.Fake(time.Now())
	channel := newTestChannel(t, endpoint, fakeClock, Options{})
	require.NoError(t, channel.Start())

	for attempt := int32(1); attempt <= 3; attempt++ {
		fakeClock.WaitForTimers(1)
		assert.Equal(t, attempt, endpoint.attempts.Load())
		fakeClock.Advance(999 * time.Millisecond)
		assert.Equal(t, 1, fakeClock.PendingCount())
		fakeClock.Advance(time.Millisecond)
		require.Eventually(t, func() bool {
			return endpoint.attempts.Load() == attempt+1
		}, 5*time.Second, 5*time.Millisecond)
	}
}

func TestChannel_CappedExponentialBackoff(t *testing.T) {
	endpoint := newTestEndpoint(t)
	endpoint.reject.Store(true)
	fakeClock := clock.Fake(time.Now())
	channel := newTestChannel(t, endpoint, fakeClock, Options{
		MaxReconnectDelay: 4 * time.Second,
	})
	require.NoError(t, channel.Start())

	delays := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, delay := range delays {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(delay - time.Millisecond)
		assert.Equal(t, 1, fakeClock.PendingCount(), "delay %d fired early", i)
		fakeClock.Advance(time.Millisecond)
		expected := int32(i + 2)
		require.Eventually(t, func() bool {
			return endpoint.attempts.Load() == expected
		}, 5*time.Second, 5*time.Millisecond)
	}

	endpoint.reject.Store(false)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(4 * time.Second)
	waitForState(t, channel, StateReady)

	// a successful open resets the delay
	endpoint.dropAll()
	fakeClock.WaitForTimers(1)
	attempts := endpoint.attempts.Load()
	fakeClock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return endpoint.attempts.Load() == attempts+1
	}, 5*time.Second, 5*time.Millisecond)
	waitForState(t, channel, StateReady)
}

func TestChannel_Drain(t *testing.T) {
	endpoint := newTestEndpoint(t)
	channel := newTestChannel(t, endpoint, clock.Fake(time.Now()), Options{})
	for i := 0; i < 20; i++ {
		channel.Write("line")
	}
	require.NoError(t, channel.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, channel.Drain(ctx))
	assert.True(t, channel.Ready())
	require.Eventually(t, func() bool {
		return len(endpoint.received) == 20
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, channel.Close())
	assert.Error(t, channel.Drain(context.Background()))
}

func TestChannel_DropsOldestWhenFull(t *testing.T) {
	endpoint := newTestEndpoint(t)
	channel := newTestChannel(t, endpoint, clock.Fake(time.Now()), Options{MaxBufferLines: 2})
	channel.Write("a")
	channel.Write("b")
	channel.Write("c")
	assert.Equal(t, 2, channel.Buffered())
	assert.EqualValues(t, 1, channel.Dropped())

	require.NoError(t, channel.Start())
	endpoint.expect(t, "b", "c")
}

func TestChannel_SentLinesAreNotCountedAsDropped(t *testing.T) {
	endpoint := newTestEndpoint(t)
	channel := newTestChannel(t, endpoint, clock.Fake(time.Now()), Options{MaxBufferLines: 2})
	require.NoError(t, channel.Start())
	waitForState(t, channel, StateReady)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, line := range []string{"a", "b", "c", "d"} {
		channel.Write(line)
		require.NoError(t, channel.Drain(ctx))
	}
	endpoint.expect(t, "a", "b", "c", "d")
	assert.Equal(t, 2, channel.Buffered())
	assert.Zero(t, channel.Dropped())
}

func TestChannel_DrainWaitsForReconnect(t *testing.T) {
	endpoint := newTestEndpoint(t)
	fakeClock := clock.Fake(time.Now())
	channel := newTestChannel(t, endpoint, fakeClock, Options{})
	endpoint.reject.Store(true)
	require.NoError(t, channel.Start())
	waitForState(t, channel, StateDisconnected)
	channel.Write("pending")

	drained := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		drained <- channel.Drain(ctx)
	}()
	select {
	case err := <-drained:
		t.Fatalf("drain returned while disconnected: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	endpoint.reject.Store(false)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)
	require.NoError(t, <-drained)
	endpoint.expect(t, "pending")
}

func TestOutboundBuffer_DropCounting(t *testing.T) {
	buffer := newOutboundBuffer(2)
	buffer.Push("sent", true)
	buffer.Push("queued", false)
	buffer.Push("evicts sent", false)
	assert.Zero(t, buffer.Dropped())
	buffer.Push("evicts queued", false)
	assert.EqualValues(t, 1, buffer.Dropped())

	lines, sequence := buffer.Snapshot()
	assert.Equal(t, []string{"evicts sent", "evicts queued"}, lines)
	buffer.Push("after snapshot", false)
	buffer.Trim(sequence)
	lines, _ = buffer.Snapshot()
	assert.Equal(t, []string{"after snapshot"}, lines)
}

func TestChannel_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	endpoint := newTestEndpoint(t)
	fakeClock := clock.Fake(time.Now())
	channel, err := NewChannel(Options{URL: endpoint.URL(), Clock: fakeClock})
	require.NoError(t, err)
	require.NoError(t, channel.Start())
	waitForState(t, channel, StateReady)

	require.NoError(t, channel.Close())
	assert.Equal(t, StateDisconnected, channel.State())
	assert.NotPanics(t, func() {
		channel.Write("late")
	})
	assert.Zero(t, channel.Buffered())
	assert.Error(t, channel.Start())
	require.NoError(t, channel.Close())
	assert.Zero(t, fakeClock.PendingCount())
	endpoint.server.Close()
}

func TestChannel_CloseDuringBackoff(t *testing.T) {
	endpoint := newTestEndpoint(t)
	endpoint.reject.Store(true)
	fakeClock := clock.Fake(time.Now())
	channel, err := NewChannel(Options{URL: endpoint.URL(), Clock: fakeClock})
	require.NoError(t, err)
	require.NoError(t, channel.Start())
	fakeClock.WaitForTimers(1)

	done := make(chan struct{})
	go func() {
		channel.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close blocked during backoff")
	}
}

func TestNewChannel_Errors(t *testing.T) {
	_, err := NewChannel(Options{})
	assert.Error(t, err)
	_, err = NewChannel(Options{URL: "http://localhost/logger"})
	assert.Error(t, err)
	_, err = NewChannel(Options{URL: "://bad"})
	assert.Error(t, err)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		server   string
		clientID string
		want     string
	}{
		{"http://localhost:8888", "", "ws://localhost:8888/logger"},
		{"https://hub.example.com/user/ana/", "lab-1", "wss://hub.example.com/user/ana/logger/lab-1"},
		{"ws://localhost:8888/", "a b", "ws://localhost:8888/logger/a%20b"},
		{"http://localhost:8888/?token=x", "id", "ws://localhost:8888/logger/id?token=x"},
	}
	for _, tt := range tests {
		got, err := BuildURL(tt.server, tt.clientID)
		require.NoError(t, err, tt.server)
		assert.Equal(t, tt.want, got, tt.server)
	}

	_, err := BuildURL("ftp://localhost", "")
	assert.Error(t, err)
	_, err = BuildURL("http://", "")
	assert.Error(t, err)
}
