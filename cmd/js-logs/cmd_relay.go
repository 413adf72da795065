package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/transport/wslog"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/spf13/cobra"
)

const defaultRelayListen = "127.0.0.1:8888"

var commandRelay = &cobra.Command{
	Use:   "relay",
	Short: "Run the log relay server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := runRelay()
		if err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	mainCommand.AddCommand(commandRelay)
}

func newStore(options option.RelayOptions) (adapter.LineStore, error) {
	directory := options.Directory
	if directory == "" {
		directory = "."
	}
	switch options.Store {
	case "", C.RelayStoreFile:
		return wslog.NewFileStore(directory), nil
	case C.RelayStoreBolt:
		store, err := wslog.NewBoltStore(filepath.Join(directory, C.LoggerPath+".db"))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, E.New("unknown relay store: ", options.Store)
	}
}

func runRelay() error {
	options, err := readConfig()
	if err != nil {
		return err
	}
	var logOptions option.LogOptions
	if options.Log != nil {
		logOptions = *options.Log
	}
	var relayOptions option.RelayOptions
	if options.Relay != nil {
		relayOptions = *options.Relay
	}
	if relayOptions.Listen == "" {
		relayOptions.Listen = defaultRelayListen
	}
	logFactory, err := log.New(log.Options{
		Options:  logOptions,
		BaseTime: time.Now(),
	})
	if err != nil {
		return E.Cause(err, "create logger")
	}
	err = logFactory.Start()
	if err != nil {
		return E.Cause(err, "start logger")
	}
	defer logFactory.Close()

	store, err := newStore(relayOptions)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server, err := wslog.NewServer(wslog.ServerOptions{
		Context:        ctx,
		Logger:         logFactory.NewLogger("relay"),
		Listen:         relayOptions.Listen,
		Store:          store,
		AllowedOrigins: relayOptions.AllowedOrigins,
		MaxMessageSize: relayOptions.MaxMessageSize,
	})
	if err != nil {
		store.Close()
		return err
	}
	err = server.Start()
	if err != nil {
		server.Close()
		return err
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(osSignals)
	<-osSignals

	closeCtx, closed := context.WithCancel(context.Background())
	go closeMonitor(closeCtx)
	err = server.Close()
	closed()
	return err
}

func closeMonitor(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(C.StopTimeout + time.Second):
	}
	log.Fatal("relay did not close in time")
}
