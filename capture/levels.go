package capture

import (
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	E "github.com/sagernet/sing/common/exceptions"
)

// Method names one entry point of the host console surface.
type Method string

const (
	MethodDebug     Method = "debug"
	MethodLog       Method = "log"
	MethodInfo      Method = "info"
	MethodWarn      Method = "warn"
	MethodError     Method = "error"
	MethodTrace     Method = "trace"
	MethodTable     Method = "table"
	MethodException Method = "exception"
	// MethodUncaught is not a console method; it keys the level given to
	// uncaught error reports.
	MethodUncaught Method = "uncaught"
)

// Methods lists the console entry points an Interceptor wraps.
var Methods = []Method{
	MethodDebug,
	MethodLog,
	MethodInfo,
	MethodWarn,
	MethodError,
	MethodTrace,
	MethodTable,
	MethodException,
}

const (
	PresetDefault = "default"
	PresetInfo    = "info"
)

// LevelTable maps console methods to record levels.
type LevelTable map[Method]log.Level

// DefaultLevels maps log to debug and trace and table to info.
func DefaultLevels() LevelTable {
	return LevelTable{
		MethodDebug:     log.LevelDebug,
		MethodLog:       log.LevelDebug,
		MethodInfo:      log.LevelInfo,
		MethodWarn:      log.LevelWarning,
		MethodError:     log.LevelCritical,
		MethodTrace:     log.LevelInfo,
		MethodTable:     log.LevelInfo,
		MethodException: log.LevelCritical,
		MethodUncaught:  log.LevelCritical,
	}
}

// InfoLevels treats log as an alias of info.
func InfoLevels() LevelTable {
	table := DefaultLevels()
	table[MethodLog] = log.LevelInfo
	return table
}

// NewLevelTable builds a table from a preset and per-method overrides.
func NewLevelTable(options option.CaptureOptions) (LevelTable, error) {
	var table LevelTable
	switch options.Preset {
	case "", PresetDefault:
		table = DefaultLevels()
	case PresetInfo:
		table = InfoLevels()
	default:
		return nil, E.New("unknown capture preset: ", options.Preset)
	}
	for method, levelName := range options.Levels {
		if _, known := table[Method(method)]; !known {
			return nil, E.New("unknown console method: ", method)
		}
		level, err := log.ParseLevel(levelName)
		if err != nil {
			return nil, E.Cause(err, "capture level for ", method)
		}
		table[Method(method)] = level
	}
	return table, nil
}

// Level returns the level for method, info for methods the table lacks.
func (t LevelTable) Level(method Method) log.Level {
	if level, loaded := t[method]; loaded {
		return level
	}
	return log.LevelInfo
}

func (t LevelTable) Clone() LevelTable {
	table := make(LevelTable, len(t))
	for method, level := range t {
		table[method] = level
	}
	return table
}
