package capture

import (
	"fmt"
	"io"
	"sync"
)

// Func is one console entry point.
type Func func(args ...any)

// ErrorHandler receives uncaught error notifications. Returning true
// suppresses the console's default error report.
type ErrorHandler func(message string, source string, line int, column int, err error) bool

// Console is a console-like host surface: a table of entry points plus a
// global uncaught error notification.
type Console struct {
	access   sync.RWMutex
	methods  map[Method]Func
	onError  ErrorHandler
	fallback ErrorHandler

	// set while an Interceptor is installed
	owner           *Interceptor
	originals       map[Method]Func
	originalOnError ErrorHandler
}

func NewConsole(methods map[Method]Func, fallback ErrorHandler) *Console {
	console := &Console{
		methods:  make(map[Method]Func, len(methods)),
		fallback: fallback,
	}
	for method, function := range methods {
		console.methods[method] = function
	}
	return console
}

// StdConsole prints like a terminal console: debug, log, info, trace and
// table go to stdout, the rest to stderr.
func StdConsole(stdout io.Writer, stderr io.Writer) *Console {
	printer := func(writer io.Writer, prefix string) Func {
		return func(args ...any) {
			if prefix != "" {
				args = append([]any{prefix}, args...)
			}
			fmt.Fprintln(writer, args...)
		}
	}
	return NewConsole(map[Method]Func{
		MethodDebug:     printer(stdout, ""),
		MethodLog:       printer(stdout, ""),
		MethodInfo:      printer(stdout, ""),
		MethodTrace:     printer(stdout, "Trace:"),
		MethodTable:     printer(stdout, ""),
		MethodWarn:      printer(stderr, ""),
		MethodError:     printer(stderr, ""),
		MethodException: printer(stderr, ""),
	}, func(message string, source string, line int, column int, err error) bool {
		if source != "" {
			fmt.Fprintf(stderr, "Uncaught %s (%s:%d:%d)\n", message, source, line, column)
		} else {
			fmt.Fprintln(stderr, "Uncaught", message)
		}
		return true
	})
}

// Captured reports whether an Interceptor is installed.
func (c *Console) Captured() bool {
	c.access.RLock()
	defer c.access.RUnlock()
	return c.owner != nil
}

func (c *Console) Method(method Method) Func {
	c.access.RLock()
	defer c.access.RUnlock()
	return c.methods[method]
}

func (c *Console) SetMethod(method Method, function Func) {
	c.access.Lock()
	defer c.access.Unlock()
	c.methods[method] = function
}

func (c *Console) ErrorHandler() ErrorHandler {
	c.access.RLock()
	defer c.access.RUnlock()
	return c.onError
}

func (c *Console) SetErrorHandler(handler ErrorHandler) {
	c.access.Lock()
	defer c.access.Unlock()
	c.onError = handler
}

// Call invokes method with args. Missing methods are ignored.
func (c *Console) Call(method Method, args ...any) {
	function := c.Method(method)
	if function != nil {
		function(args...)
	}
}

func (c *Console) Debug(args ...any) {
	c.Call(MethodDebug, args...)
}

func (c *Console) Log(args ...any) {
	c.Call(MethodLog, args...)
}

func (c *Console) Info(args ...any) {
	c.Call(MethodInfo, args...)
}

func (c *Console) Warn(args ...any) {
	c.Call(MethodWarn, args...)
}

func (c *Console) Error(args ...any) {
	c.Call(MethodError, args...)
}

func (c *Console) Trace(args ...any) {
	c.Call(MethodTrace, args...)
}

func (c *Console) Table(args ...any) {
	c.Call(MethodTable, args...)
}

func (c *Console) Exception(args ...any) {
	c.Call(MethodException, args...)
}

// ReportError delivers an uncaught error to the installed handler, then to
// the default report unless the handler suppressed it. It reports whether
// the error was handled.
func (c *Console) ReportError(message string, source string, line int, column int, err error) bool {
	c.access.RLock()
	handler, fallback := c.onError, c.fallback
	c.access.RUnlock()
	if handler != nil && handler(message, source, line, column, err) {
		return true
	}
	if fallback != nil {
		return fallback(message, source, line, column, err)
	}
	return false
}

// Wrap decorates original: onCapture sees the arguments first, then original
// runs with exactly the same arguments. A panic in onCapture is swallowed.
func Wrap(original Func, onCapture func(args []any)) Func {
	return func(args ...any) {
		captureSafely(onCapture, args)
		if original != nil {
			original(args...)
		}
	}
}

func captureSafely(onCapture func(args []any), args []any) {
	defer func() {
		_ = recover()
	}()
	onCapture(args)
}
