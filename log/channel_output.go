package log

import (
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
)

var _ Output = (*ChannelOutput)(nil)

// ChannelOutput serializes entries into single lines and hands them to a
// LineWriter, usually the websocket log channel.
type ChannelOutput struct {
	writer     adapter.LineWriter
	format     string
	formatter  Formatter
	jsonOutput *JSONOutput
}

// NewChannelOutput creates an output that writes one line per entry. The
// format is either text or json.
func NewChannelOutput(writer adapter.LineWriter, format string, hostname, version string) (*ChannelOutput, error) {
	if writer == nil {
		return nil, E.New("channel output requires a channel")
	}
	switch format {
	case "":
		format = C.LogFormatText
	case C.LogFormatText, C.LogFormatJSON:
	default:
		return nil, E.New("unknown channel output format: ", format)
	}
	return &ChannelOutput{
		writer: writer,
		format: format,
		formatter: Formatter{
			DisableColors:    true,
			FullTimestamp:    true,
			TimestampFormat:  "-0700 2006-01-02 15:04:05",
			DisableLineBreak: true,
		},
		jsonOutput: NewJSONOutput(nil, "", hostname, version),
	}, nil
}

// Start starts the underlying channel if it owns a connection lifecycle
func (o *ChannelOutput) Start() error {
	if starter, ok := o.writer.(interface{ Start() error }); ok {
		return starter.Start()
	}
	return nil
}

// Write serializes the entry and passes it to the channel
func (o *ChannelOutput) Write(entry Entry) error {
	switch o.format {
	case C.LogFormatJSON:
		data, err := o.jsonOutput.marshal(entry)
		if err != nil {
			return E.Cause(err, "marshal log entry")
		}
		o.writer.Write(string(data))
	default:
		o.writer.Write(o.formatter.Format(entry.Level, entry.Tag, entry.Data, entry.Timestamp))
	}
	return nil
}

// Close disposes the channel
func (o *ChannelOutput) Close() error {
	return common.Close(o.writer)
}
