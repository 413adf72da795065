package constant

import "time"

const (
	DefaultReconnectDelay = time.Second
	DefaultMaxBufferLines = 10000
	DefaultRegistryLength = 1000
	DefaultOutputQueue    = 4096
	DefaultMessageSize    = 10 << 20
	DefaultDialTimeout    = 10 * time.Second
	StopTimeout           = 5 * time.Second
)
