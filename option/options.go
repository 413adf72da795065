package option

import (
	"bytes"

	"github.com/sagernet/sing/common/json"
)

type _Options struct {
	RawMessage json.RawMessage `json:"-"`
	Schema     string          `json:"$schema,omitempty"`
	Log        *LogOptions     `json:"log,omitempty"`
	Capture    *CaptureOptions `json:"capture,omitempty"`
	Channel    *ChannelOptions `json:"channel,omitempty"`
	Relay      *RelayOptions   `json:"relay,omitempty"`
}

type Options _Options

func (o *Options) UnmarshalJSON(content []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	err := decoder.Decode((*_Options)(o))
	if err != nil {
		return err
	}
	o.RawMessage = content
	return nil
}

// Parse decodes a configuration file. Unknown fields are rejected.
func Parse(content []byte) (Options, error) {
	var options Options
	err := json.Unmarshal(content, &options)
	return options, err
}
