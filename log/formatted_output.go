package log

import (
	"io"
)

var _ Output = (*FormattedOutput)(nil)

// FormattedOutput prints one human readable line per entry.
type FormattedOutput struct {
	formatter Formatter
	output    lineWriter
}

// NewFormattedOutput writes to writer, or to filePath when writer is nil.
func NewFormattedOutput(formatter Formatter, writer io.Writer, filePath string) *FormattedOutput {
	return &FormattedOutput{
		formatter: formatter,
		output: lineWriter{
			writer:   writer,
			filePath: filePath,
		},
	}
}

func (o *FormattedOutput) Start() error {
	return o.output.open()
}

func (o *FormattedOutput) Write(entry Entry) error {
	message := o.formatter.Format(entry.Level, entry.Tag, entry.Data, entry.Timestamp)
	return o.output.write([]byte(message))
}

func (o *FormattedOutput) Close() error {
	return o.output.close()
}

// Dropped returns the number of entries lost to a full write queue.
func (o *FormattedOutput) Dropped() uint64 {
	return o.output.Dropped()
}
