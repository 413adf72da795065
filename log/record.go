package log

import "time"

// Kind tags the payload carried by a Record. Only text payloads are produced
// today; the field leaves room for richer kinds.
type Kind string

const KindText Kind = "text"

// Record is one captured console call. Records are values: once built they
// are never modified and carry nothing but what was encoded into Data.
type Record struct {
	Kind  Kind   `json:"type"`
	Level Level  `json:"level"`
	Data  string `json:"data"`
}

func NewTextRecord(level Level, data string) Record {
	return Record{
		Kind:  KindText,
		Level: level,
		Data:  data,
	}
}

// Sink consumes records. Implementations must not block the caller.
type Sink interface {
	Log(record Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(record Record)

func (f SinkFunc) Log(record Record) {
	f(record)
}

// Entry is a Record stamped with arrival metadata on its way to outputs.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Record
}

// Output interface for different output destinations
type Output interface {
	// Write writes a log entry to the output
	Write(entry Entry) error
	// Close flushes and closes the output
	Close() error
}
