package dialer

import (
	"net"
	"net/http"
	"time"
)

// New returns a TCP dialer with operating system keep-alive defaults.
func New(timeout time.Duration) *net.Dialer {
	dialer := &net.Dialer{Timeout: timeout}
	setKeepAliveConfig(dialer)
	return dialer
}

func setKeepAliveConfig(dialer *net.Dialer) {
	dialer.KeepAliveConfig = net.KeepAliveConfig{
		Enable: true,
	}
}

// HTTPClient returns a client for websocket handshakes. Proxy settings come
// from the environment.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         New(timeout).DialContext,
			TLSHandshakeTimeout: timeout,
			ForceAttemptHTTP2:   false,
		},
	}
}
