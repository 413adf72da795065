package option

import "github.com/sagernet/sing/common/json/badoption"

type RelayOptions struct {
	Listen         string                     `json:"listen"`
	Directory      string                     `json:"directory,omitempty"`
	Store          string                     `json:"store,omitempty"`
	AllowedOrigins badoption.Listable[string] `json:"allowed_origins,omitempty"`
	// MaxMessageSize bounds one relayed line in bytes, 10 MiB when zero.
	MaxMessageSize int64 `json:"max_message_size,omitempty"`
}
