package constant

// LoggerPath is the path segment the relay endpoint lives under, joined to the
// server base address by clients and mounted by the relay server.
const LoggerPath = "logger"

const (
	LogOutputTypeStdout  = "stdout"
	LogOutputTypeStderr  = "stderr"
	LogOutputTypeFile    = "file"
	LogOutputTypeChannel = "channel"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	RelayStoreFile = "file"
	RelayStoreBolt = "bolt"
)
