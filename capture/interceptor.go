package capture

import (
	"runtime"
	"strings"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	E "github.com/sagernet/sing/common/exceptions"
)

// Interceptor installs capturing wrappers on a Console and turns every call
// into a record for its pipeline.
type Interceptor struct {
	pipeline *Pipeline
	levels   LevelTable
}

func NewInterceptor(pipeline *Pipeline, levels LevelTable) *Interceptor {
	if levels == nil {
		levels = DefaultLevels()
	}
	return &Interceptor{
		pipeline: pipeline,
		levels:   levels.Clone(),
	}
}

func (i *Interceptor) Pipeline() *Pipeline {
	return i.pipeline
}

func (i *Interceptor) Levels() LevelTable {
	return i.levels.Clone()
}

// Install wraps every console method and the uncaught error handler. It
// returns false without changes when the console is already wrapped.
func (i *Interceptor) Install(console *Console) bool {
	console.access.Lock()
	defer console.access.Unlock()
	if console.owner != nil {
		return false
	}
	console.owner = i
	console.originals = make(map[Method]Func, len(Methods))
	for _, method := range Methods {
		original := console.methods[method]
		console.originals[method] = original
		console.methods[method] = Wrap(original, i.captureFunc(method))
	}
	previous := console.onError
	console.originalOnError = previous
	console.onError = func(message string, source string, line int, column int, err error) bool {
		handled := i.HandleError(message, source, line, column, err)
		if previous != nil && previous(message, source, line, column, err) {
			handled = true
		}
		return handled
	}
	return true
}

// Uninstall restores the methods and error handler saved by Install. It
// does nothing unless i is the interceptor installed on console.
func (i *Interceptor) Uninstall(console *Console) bool {
	console.access.Lock()
	defer console.access.Unlock()
	if console.owner != i {
		return false
	}
	for method, original := range console.originals {
		if original == nil {
			delete(console.methods, method)
		} else {
			console.methods[method] = original
		}
	}
	console.onError = console.originalOnError
	console.owner = nil
	console.originals = nil
	console.originalOnError = nil
	return true
}

func (i *Interceptor) captureFunc(method Method) func(args []any) {
	return func(args []any) {
		i.Capture(method, args)
	}
}

// Capture builds the record for one console call and logs it.
func (i *Interceptor) Capture(method Method, args []any) {
	var data string
	if method == MethodException {
		var message any
		if len(args) > 0 {
			message = args[0]
			args = args[1:]
		}
		data = "Exception: " + FormatArg(message) + "\n" + FormatArgs(args...)
	} else {
		data = FormatArgs(args...)
	}
	i.CaptureMessage(method, data)
}

// CaptureMessage logs an already rendered message at the level of method.
func (i *Interceptor) CaptureMessage(method Method, message string) {
	i.pipeline.Log(log.NewTextRecord(i.levels.Level(method), message))
}

// HandleError records an uncaught error. It always returns false so the
// host's default error report still runs.
func (i *Interceptor) HandleError(message string, source string, line int, column int, err error) bool {
	event := log.NewErrorEvent(message).WithLocation(source, line, column)
	if err != nil {
		event = event.WithError(err)
	}
	record := event.ToRecord()
	record.Level = i.levels.Level(MethodUncaught)
	i.pipeline.Log(record)
	return false
}

// Recover reports a panic in the calling goroutine as an uncaught error and
// re-panics. Use it directly in a defer statement.
func (i *Interceptor) Recover() {
	cause := recover()
	if cause == nil {
		return
	}
	err, isError := cause.(error)
	if !isError {
		err = E.New(cause)
	}
	source, line := panicLocation()
	i.HandleError("panic: "+err.Error(), source, line, 0, err)
	panic(cause)
}

func panicLocation() (string, int) {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File, frame.Line
		}
		if !more {
			return "", 0
		}
	}
}
