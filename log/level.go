package log

import (
	"strings"

	E "github.com/sagernet/sing/common/exceptions"
)

// Level is the severity of a record. Larger values are more severe.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelCritical
)

func FormatLevel(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseLevel accepts the canonical level names plus the common aliases
// used by host consoles and Go loggers.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return LevelDebug, nil
	case "info", "log":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "critical", "error", "fatal", "panic":
		return LevelCritical, nil
	default:
		return LevelDebug, E.New("unknown log level: ", level)
	}
}

func (l Level) String() string {
	return FormatLevel(l)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(FormatLevel(l)), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
