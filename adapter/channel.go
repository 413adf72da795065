package adapter

// LineWriter accepts serialized log lines for delivery. One call carries one
// line; implementations buffer and never block the caller.
type LineWriter interface {
	Write(line string)
}

// LogChannel is a LineWriter with an owned connection lifecycle.
type LogChannel interface {
	LineWriter
	Start() error
	Ready() bool
	Close() error
}
