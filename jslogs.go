package jslogs

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/capture"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/common/clock"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/transport/wslog"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
)

type Options struct {
	option.Options
	Context context.Context
	// Console is the host surface to capture. A terminal console on
	// os.Stdout and os.Stderr is used when nil.
	Console *capture.Console
	// LogWriter replaces the default writer of the log outputs.
	LogWriter io.Writer
	Clock     clock.Clock
}

// Instance wires a capture pipeline to the log factory and, when enabled,
// to a resilient log channel.
type Instance struct {
	ctx         context.Context
	createdAt   time.Time
	logFactory  log.ObservableFactory
	logger      log.ContextLogger
	registry    *log.Registry
	pipeline    *capture.Pipeline
	interceptor *capture.Interceptor
	console     *capture.Console
	channel     *wslog.Channel
	started     bool
}

func New(options Options) (*Instance, error) {
	createdAt := time.Now()
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var logOptions option.LogOptions
	if options.Log != nil {
		logOptions = *options.Log
	}
	var captureOptions option.CaptureOptions
	if options.Capture != nil {
		captureOptions = *options.Capture
	}
	levels, err := capture.NewLevelTable(captureOptions)
	if err != nil {
		return nil, E.Cause(err, "create level table")
	}

	var channel *wslog.Channel
	var channelFormat string
	if options.Channel != nil && options.Channel.Enabled {
		channel, err = newChannel(ctx, *options.Channel, options.Clock)
		if err != nil {
			return nil, E.Cause(err, "create log channel")
		}
		channelFormat = options.Channel.Format
	}

	var lineWriter adapter.LineWriter
	if channel != nil {
		lineWriter = channel
	}
	registry := log.NewRegistry(logOptions.RegistryLength)
	logFactory, err := log.New(log.Options{
		Options:       logOptions,
		Observable:    true,
		DefaultWriter: options.LogWriter,
		BaseTime:      createdAt,
		Channel:       lineWriter,
		ChannelFormat: channelFormat,
		Registry:      registry,
	})
	if err != nil {
		common.Close(common.PtrOrNil(channel))
		return nil, E.Cause(err, "create log factory")
	}
	if channel != nil {
		channel.SetLogger(logFactory.NewLogger("channel"))
	}

	console := options.Console
	if console == nil {
		console = capture.StdConsole(os.Stdout, os.Stderr)
	}
	pipeline := capture.NewPipeline()
	interceptor := capture.NewInterceptor(pipeline, levels)
	if !interceptor.Install(console) {
		common.Close(common.PtrOrNil(channel), logFactory)
		return nil, E.New("console is already captured")
	}

	return &Instance{
		ctx:         ctx,
		createdAt:   createdAt,
		logFactory:  logFactory,
		logger:      logFactory.NewLogger("js-logs"),
		registry:    registry,
		pipeline:    pipeline,
		interceptor: interceptor,
		console:     console,
		channel:     channel,
	}, nil
}

func newChannel(ctx context.Context, options option.ChannelOptions, channelClock clock.Clock) (*wslog.Channel, error) {
	server := options.Server
	if options.Path != "" {
		server = strings.TrimSuffix(server, "/") + "/" + strings.TrimPrefix(options.Path, "/")
	}
	endpoint, err := wslog.BuildURL(server, options.ClientID)
	if err != nil {
		return nil, err
	}
	return wslog.NewChannel(wslog.Options{
		Context:           ctx,
		URL:               endpoint,
		ReconnectDelay:    time.Duration(options.ReconnectDelay),
		MaxReconnectDelay: time.Duration(options.MaxReconnectDelay),
		MaxBufferLines:    options.MaxBufferLines,
		Clock:             channelClock,
	})
}

// Start starts the outputs and attaches the log factory to the pipeline.
// Records captured since New are delivered first.
func (i *Instance) Start() error {
	if i.started {
		return nil
	}
	err := i.logFactory.Start()
	if err != nil {
		return E.Cause(err, "start log factory")
	}
	i.pipeline.AttachSink(i.logFactory)
	i.started = true
	i.logger.Info("started (", F.Seconds(time.Since(i.createdAt).Seconds()), "s)")
	return nil
}

func (i *Instance) Close() error {
	i.pipeline.DetachSink()
	i.interceptor.Uninstall(i.console)
	return E.Errors(
		common.Close(common.PtrOrNil(i.channel)),
		i.logFactory.Close(),
	)
}

func (i *Instance) Console() *capture.Console {
	return i.console
}

func (i *Instance) Pipeline() *capture.Pipeline {
	return i.pipeline
}

func (i *Instance) Interceptor() *capture.Interceptor {
	return i.interceptor
}

func (i *Instance) Registry() *log.Registry {
	return i.registry
}

func (i *Instance) LogFactory() log.ObservableFactory {
	return i.logFactory
}

func (i *Instance) Logger() log.ContextLogger {
	return i.logger
}

// Channel returns the log channel, nil when disabled.
func (i *Instance) Channel() *wslog.Channel {
	return i.channel
}
