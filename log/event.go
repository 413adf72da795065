package log

import (
	"strconv"
	"strings"
)

// ErrorEvent describes an uncaught error reported by the host: the message,
// where it was raised and the error value itself.
type ErrorEvent struct {
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewErrorEvent creates an uncaught error event
func NewErrorEvent(message string) *ErrorEvent {
	return &ErrorEvent{
		Message: message,
	}
}

// WithLocation sets the source location
func (e *ErrorEvent) WithLocation(source string, line, column int) *ErrorEvent {
	e.Source = source
	e.Line = line
	e.Column = column
	return e
}

// WithError sets the error value
func (e *ErrorEvent) WithError(err error) *ErrorEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithValue sets the error value from an arbitrary panic or host value
func (e *ErrorEvent) WithValue(value string) *ErrorEvent {
	e.Error = value
	return e
}

// Format renders the event as "<source>:<line> <message>\n<error>".
func (e *ErrorEvent) Format() string {
	var builder strings.Builder
	builder.WriteString(e.Source)
	builder.WriteByte(':')
	builder.WriteString(strconv.Itoa(e.Line))
	builder.WriteByte(' ')
	builder.WriteString(e.Message)
	builder.WriteByte('\n')
	builder.WriteString(e.Error)
	return builder.String()
}

// ToRecord converts the event into the critical record the pipeline carries.
func (e *ErrorEvent) ToRecord() Record {
	return NewTextRecord(LevelCritical, e.Format())
}
