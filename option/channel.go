package option

import "github.com/sagernet/sing/common/json/badoption"

type ChannelOptions struct {
	Enabled bool `json:"enabled,omitempty"`
	// Server is the http(s) or ws(s) base URL of the relay.
	Server string `json:"server"`
	// Path is an extra base path below Server, like a notebook server's
	// base_url.
	Path              string             `json:"path,omitempty"`
	ClientID          string             `json:"client_id,omitempty"`
	ReconnectDelay    badoption.Duration `json:"reconnect_delay,omitempty"`
	MaxReconnectDelay badoption.Duration `json:"max_reconnect_delay,omitempty"`
	MaxBufferLines    int                `json:"max_buffer_lines,omitempty"`
	// Format of the lines sent over the channel: text or json.
	Format string `json:"format,omitempty"`
}
