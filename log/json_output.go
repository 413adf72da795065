package log

import (
	"io"
	"time"

	"github.com/sagernet/sing/common/json"
)

var _ Output = (*JSONOutput)(nil)

// JSONOutput prints one JSON document per line:
//
//	{"@timestamp":"...","type":"text","level":"info","tag":"...","data":"...","host":{...}}
type JSONOutput struct {
	output lineWriter
	host   *jsonHost
}

type jsonDocument struct {
	Timestamp string    `json:"@timestamp"`
	Kind      Kind      `json:"type"`
	Level     string    `json:"level"`
	Tag       string    `json:"tag,omitempty"`
	Data      string    `json:"data"`
	Host      *jsonHost `json:"host,omitempty"`
}

type jsonHost struct {
	Hostname string `json:"hostname,omitempty"`
	Version  string `json:"version,omitempty"`
}

// NewJSONOutput writes to writer, or to filePath when writer is nil.
// Hostname and version are attached to every document when set.
func NewJSONOutput(writer io.Writer, filePath, hostname, version string) *JSONOutput {
	output := &JSONOutput{
		output: lineWriter{
			writer:   writer,
			filePath: filePath,
		},
	}
	if hostname != "" || version != "" {
		output.host = &jsonHost{Hostname: hostname, Version: version}
	}
	return output
}

func (o *JSONOutput) Start() error {
	return o.output.open()
}

func (o *JSONOutput) Write(entry Entry) error {
	content, err := o.marshal(entry)
	if err != nil {
		return err
	}
	return o.output.write(append(content, '\n'))
}

func (o *JSONOutput) Close() error {
	return o.output.close()
}

func (o *JSONOutput) marshal(entry Entry) ([]byte, error) {
	return json.Marshal(jsonDocument{
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:      entry.Kind,
		Level:     FormatLevel(entry.Level),
		Tag:       entry.Tag,
		Data:      entry.Data,
		Host:      o.host,
	})
}

func (o *JSONOutput) Dropped() uint64 {
	return o.output.Dropped()
}
