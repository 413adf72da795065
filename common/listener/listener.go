package listener

import (
	"context"
	"net"
	"time"

	E "github.com/sagernet/sing/common/exceptions"
)

// ListenTCP binds address with TCP keep-alive enabled on accepted
// connections. A zero idle or interval keeps the system default.
func ListenTCP(ctx context.Context, address string, idle time.Duration, interval time.Duration) (net.Listener, error) {
	var listenConfig net.ListenConfig
	setKeepAliveConfig(&listenConfig, idle, interval)
	listener, err := listenConfig.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, E.Cause(err, "listen ", address)
	}
	return listener, nil
}

func setKeepAliveConfig(listenConfig *net.ListenConfig, idle time.Duration, interval time.Duration) {
	listenConfig.KeepAliveConfig = net.KeepAliveConfig{
		Enable:   true,
		Idle:     idle,
		Interval: interval,
	}
}
