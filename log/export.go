package log

import (
	"os"
	"time"
)

var std ObservableFactory

func init() {
	std = NewMultiOutputFactory([]Output{
		NewFormattedOutput(Formatter{BaseTime: time.Now()}, os.Stderr, ""),
	}, false)
}

// StdLogger returns the process-wide logger writing to stderr, used before
// a configured factory exists.
func StdLogger() ContextLogger {
	return std.Logger()
}

func SetStdLogger(factory ObservableFactory) {
	std = factory
}

func Info(args ...any) {
	std.Logger().Info(args...)
}

func Warn(args ...any) {
	std.Logger().Warn(args...)
}

func Error(args ...any) {
	std.Logger().Error(args...)
}

// Fatal logs at critical level, flushes the outputs and exits the process.
func Fatal(args ...any) {
	std.Logger().Fatal(args...)
	_ = std.Close()
	os.Exit(1)
}
