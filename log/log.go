package log

import (
	"io"
	"os"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
)

type Options struct {
	Options       option.LogOptions
	Observable    bool
	DefaultWriter io.Writer
	BaseTime      time.Time
	// Channel receives entries for outputs of type "channel". Without such
	// an output, one is added using ChannelFormat.
	Channel       adapter.LineWriter
	ChannelFormat string
	// Registry, when set, is attached as an additional output.
	Registry *Registry
}

func New(options Options) (ObservableFactory, error) {
	logOptions := options.Options

	if logOptions.Disabled {
		return NewNOPFactory(), nil
	}

	var outputs []Output

	// Check if using new multi-output configuration or legacy single output
	if len(logOptions.Outputs) > 0 {
		for i, outputConfig := range logOptions.Outputs {
			output, err := createOutput(outputConfig, options)
			if err != nil {
				return nil, E.Cause(err, "create output ", i)
			}
			outputs = append(outputs, output)
		}
	} else {
		output, err := createLegacyOutput(logOptions, options)
		if err != nil {
			return nil, E.Cause(err, "create legacy output")
		}
		outputs = []Output{output}
	}
	if options.Channel != nil && !common.Any(logOptions.Outputs, func(it option.LogOutput) bool {
		return it.Type == C.LogOutputTypeChannel
	}) {
		output, err := NewChannelOutput(options.Channel, options.ChannelFormat, "", "")
		if err != nil {
			return nil, E.Cause(err, "create channel output")
		}
		outputs = append(outputs, output)
	}
	if options.Registry != nil {
		outputs = append(outputs, options.Registry)
	}

	factory := NewMultiOutputFactory(outputs, options.Observable)

	if logOptions.Level != "" {
		logLevel, err := ParseLevel(logOptions.Level)
		if err != nil {
			return nil, E.Cause(err, "parse log level")
		}
		factory.SetLevel(logLevel)
	} else {
		factory.SetLevel(LevelDebug)
	}

	return factory, nil
}

// createLegacyOutput creates an output from legacy single-output configuration
func createLegacyOutput(logOptions option.LogOptions, options Options) (Output, error) {
	var logWriter io.Writer
	var logFilePath string

	switch logOptions.Output {
	case "":
		logWriter = options.DefaultWriter
		if logWriter == nil {
			logWriter = os.Stderr
		}
	case C.LogOutputTypeStderr:
		logWriter = os.Stderr
	case C.LogOutputTypeStdout:
		logWriter = os.Stdout
	default:
		logFilePath = logOptions.Output
	}

	logFormatter := Formatter{
		BaseTime:         options.BaseTime,
		DisableColors:    logOptions.DisableColor || logFilePath != "",
		DisableTimestamp: !logOptions.Timestamp && logFilePath != "",
		FullTimestamp:    logOptions.Timestamp,
		TimestampFormat:  "-0700 2006-01-02 15:04:05",
	}

	return NewFormattedOutput(logFormatter, logWriter, logFilePath), nil
}

// createOutput creates an output from the multi-output configuration
func createOutput(config option.LogOutput, options Options) (Output, error) {
	switch config.Type {
	case C.LogOutputTypeStdout:
		return createStdOutput(config, options, os.Stdout)
	case C.LogOutputTypeStderr:
		return createStdOutput(config, options, os.Stderr)
	case C.LogOutputTypeFile:
		return createFileOutput(config, options)
	case C.LogOutputTypeChannel:
		return createChannelOutput(config, options)
	default:
		return nil, E.New("unknown output type: ", config.Type)
	}
}

func createStdOutput(config option.LogOutput, options Options, writer io.Writer) (Output, error) {
	if options.DefaultWriter != nil {
		writer = options.DefaultWriter
	}
	if config.Format == C.LogFormatJSON {
		return NewJSONOutput(writer, "", config.Hostname, config.Version), nil
	}
	formatter := Formatter{
		BaseTime:         options.BaseTime,
		DisableColors:    config.DisableColor,
		DisableTimestamp: !config.Timestamp,
		FullTimestamp:    config.Timestamp,
		TimestampFormat:  "-0700 2006-01-02 15:04:05",
	}
	return NewFormattedOutput(formatter, writer, ""), nil
}

func createFileOutput(config option.LogOutput, options Options) (Output, error) {
	if config.Path == "" {
		return nil, E.New("file output requires path")
	}
	if config.Format == C.LogFormatJSON {
		return NewJSONOutput(nil, config.Path, config.Hostname, config.Version), nil
	}
	formatter := Formatter{
		BaseTime:         options.BaseTime,
		DisableColors:    true,
		DisableTimestamp: !config.Timestamp,
		FullTimestamp:    config.Timestamp,
		TimestampFormat:  "-0700 2006-01-02 15:04:05",
	}
	return NewFormattedOutput(formatter, nil, config.Path), nil
}

func createChannelOutput(config option.LogOutput, options Options) (Output, error) {
	if options.Channel == nil {
		return nil, E.New("channel output requires an enabled channel")
	}
	return NewChannelOutput(options.Channel, config.Format, config.Hostname, config.Version)
}
