package log

import (
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"
	"github.com/sagernet/sing/common/observable"
)

// ErrObserverDisabled is returned by Subscribe on a factory built without
// Observable.
var ErrObserverDisabled = E.New("log observer not enabled")

type ContextLogger interface {
	logger.ContextLogger
}

// Factory owns a set of outputs. It is the sink the capture pipeline attaches
// to, and it hands out component loggers that write to the same outputs.
type Factory interface {
	Sink
	Start() error
	Close() error
	Level() Level
	SetLevel(level Level)
	Logger() ContextLogger
	NewLogger(tag string) ContextLogger
}

type ObservableFactory interface {
	Factory
	Subscribe() (subscription observable.Subscription[Entry], done <-chan struct{}, err error)
	UnSubscribe(subscription observable.Subscription[Entry])
}
