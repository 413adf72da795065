package wslog

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/common/clock"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/common/dialer"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"

	"github.com/coder/websocket"
)

var _ adapter.LogChannel = (*Channel)(nil)

type Options struct {
	Context context.Context
	Logger  logger.ContextLogger
	// URL is the websocket endpoint, see BuildURL.
	URL string
	// ReconnectDelay is the wait after a disconnect before dialing again.
	ReconnectDelay time.Duration
	// MaxReconnectDelay enables doubling of the delay up to this cap. The
	// delay stays fixed when it is not greater than ReconnectDelay.
	MaxReconnectDelay time.Duration
	MaxBufferLines    int
	Clock             clock.Clock
	DialOptions       *websocket.DialOptions
}

// Channel pushes lines to a websocket endpoint. Lines are buffered while
// disconnected and flushed in order on every successful open.
//
// Delivery is at least once: a line sent while the connection is ready
// stays buffered until the next flush, so a reconnect sends it again.
type Channel struct {
	ctx               context.Context
	cancel            context.CancelFunc
	logger            logger.ContextLogger
	url               string
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	clock             clock.Clock
	dialOptions       *websocket.DialOptions
	buffer            *outboundBuffer
	notify            chan struct{}
	done              chan struct{}

	access  sync.Mutex
	state   State
	queue   []bufferedLine
	sending bool
	started bool
	closed  bool
	// closed and replaced whenever state, sending or closed changes
	changed chan struct{}
}

func NewChannel(options Options) (*Channel, error) {
	if options.URL == "" {
		return nil, E.New("missing channel url")
	}
	endpoint, err := url.Parse(options.URL)
	if err != nil {
		return nil, E.Cause(err, "parse channel url")
	}
	if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
		return nil, E.New("unsupported channel scheme: ", endpoint.Scheme)
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	channel := &Channel{
		ctx:               ctx,
		cancel:            cancel,
		logger:            options.Logger,
		url:               options.URL,
		reconnectDelay:    options.ReconnectDelay,
		maxReconnectDelay: options.MaxReconnectDelay,
		clock:             options.Clock,
		dialOptions:       options.DialOptions,
		buffer:            newOutboundBuffer(options.MaxBufferLines),
		notify:            make(chan struct{}, 1),
		done:              make(chan struct{}),
		changed:           make(chan struct{}),
		state:             StateConnecting,
	}
	if channel.logger == nil {
		channel.logger = logger.NOP()
	}
	if channel.reconnectDelay <= 0 {
		channel.reconnectDelay = C.DefaultReconnectDelay
	}
	if channel.clock == nil {
		channel.clock = clock.Real()
	}
	if channel.dialOptions == nil {
		channel.dialOptions = &websocket.DialOptions{}
	} else {
		dialOptions := *channel.dialOptions
		channel.dialOptions = &dialOptions
	}
	if channel.dialOptions.HTTPClient == nil {
		channel.dialOptions.HTTPClient = dialer.HTTPClient(C.DefaultDialTimeout)
	}
	return channel, nil
}

func (c *Channel) Start() error {
	c.access.Lock()
	defer c.access.Unlock()
	if c.closed {
		return E.New("log channel closed")
	}
	if c.started {
		return nil
	}
	c.started = true
	go c.loop()
	return nil
}

// Write buffers line and, when the connection is ready, sends it right
// away. It never blocks on the network and is a no-op after Close.
func (c *Channel) Write(line string) {
	c.access.Lock()
	defer c.access.Unlock()
	if c.closed {
		return
	}
	ready := c.state == StateReady
	sequence := c.buffer.Push(line, ready)
	if !ready {
		return
	}
	if len(c.queue) >= c.buffer.maxLines {
		// still buffered, the next flush sends it
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, bufferedLine{sequence: sequence, line: line})
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Close stops reconnecting and closes the connection.
func (c *Channel) Close() error {
	c.access.Lock()
	if c.closed {
		c.access.Unlock()
		return nil
	}
	c.closed = true
	c.signalChange()
	started := c.started
	c.queue = nil
	c.access.Unlock()
	c.cancel()
	if started {
		<-c.done
	}
	return nil
}

// SetLogger replaces the channel logger. Call it before Start.
func (c *Channel) SetLogger(logger logger.ContextLogger) {
	c.logger = logger
}

func (c *Channel) URL() string {
	return c.url
}

func (c *Channel) State() State {
	c.access.Lock()
	defer c.access.Unlock()
	return c.state
}

func (c *Channel) Ready() bool {
	return c.State() == StateReady
}

// Buffered returns the number of lines waiting for the next flush.
func (c *Channel) Buffered() int {
	return c.buffer.Len()
}

// Dropped returns the number of lines evicted from a full buffer before
// they were handed to a ready connection. Lines written while ready stay
// buffered for the next flush, and evicting them later does not count.
func (c *Channel) Dropped() uint64 {
	return c.buffer.Dropped()
}

func (c *Channel) setState(state State) {
	c.access.Lock()
	defer c.access.Unlock()
	c.state = state
	c.signalChange()
	if state != StateReady {
		c.queue = nil
	}
}

func (c *Channel) loop() {
	defer close(c.done)
	delay := c.reconnectDelay
	for {
		c.setState(StateConnecting)
		conn, err := c.dial()
		if err == nil {
			delay = c.reconnectDelay
			c.logger.DebugContext(c.ctx, "log channel connected to ", c.url)
			err = c.serve(conn)
			conn.CloseNow()
		}
		c.setState(StateDisconnected)
		if c.ctx.Err() != nil {
			return
		}
		c.logger.DebugContext(c.ctx, "log channel disconnected: ", err, ", retrying in ", delay)
		select {
		case <-c.clock.After(delay):
		case <-c.ctx.Done():
			return
		}
		delay = c.nextDelay(delay)
	}
}

func (c *Channel) nextDelay(delay time.Duration) time.Duration {
	if c.maxReconnectDelay <= c.reconnectDelay {
		return c.reconnectDelay
	}
	delay *= 2
	if delay > c.maxReconnectDelay {
		delay = c.maxReconnectDelay
	}
	return delay
}

func (c *Channel) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(c.ctx, C.DefaultDialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, c.url, c.dialOptions)
	if err != nil {
		return nil, E.Cause(err, "dial ", c.url)
	}
	return conn, nil
}

func (c *Channel) serve(conn *websocket.Conn) error {
	c.access.Lock()
	c.state = StateReady
	c.signalChange()
	c.queue = nil
	c.sending = true
	lines, sequence := c.buffer.Snapshot()
	c.access.Unlock()
	defer c.setSending(false)

	for _, line := range lines {
		err := conn.Write(c.ctx, websocket.MessageText, []byte(line))
		if err != nil {
			return E.Cause(err, "flush")
		}
	}
	c.buffer.Trim(sequence)
	c.setSending(false)

	readCtx := conn.CloseRead(c.ctx)
	for {
		select {
		case <-c.notify:
		case <-readCtx.Done():
			return E.New("connection closed")
		}
		c.access.Lock()
		queue := c.queue
		c.queue = nil
		c.sending = len(queue) > 0
		c.signalChange()
		c.access.Unlock()
		for _, queued := range queue {
			err := conn.Write(c.ctx, websocket.MessageText, []byte(queued.line))
			if err != nil {
				return E.Cause(err, "write")
			}
		}
		c.setSending(false)
	}
}

func (c *Channel) setSending(sending bool) {
	c.access.Lock()
	defer c.access.Unlock()
	c.sending = sending
	c.signalChange()
}

// Drain waits until the connection is ready and every written line has been
// sent, or ctx is done.
func (c *Channel) Drain(ctx context.Context) error {
	for {
		c.access.Lock()
		idle := c.state == StateReady && len(c.queue) == 0 && !c.sending
		closed := c.closed
		changed := c.changed
		c.access.Unlock()
		if idle {
			return nil
		}
		if closed {
			return E.New("log channel closed")
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// signalChange wakes Drain callers. Must hold access.
func (c *Channel) signalChange() {
	close(c.changed)
	c.changed = make(chan struct{})
}
