package listener

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenTCP(t *testing.T) {
	listener, err := ListenTCP(context.Background(), "127.0.0.1:0", 0, 0)
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
		accepted <- err
	}()
	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	conn.Close()
	assert.NoError(t, <-accepted)
}

func TestListenTCP_InvalidAddress(t *testing.T) {
	_, err := ListenTCP(context.Background(), "127.0.0.1:-1", 0, 0)
	assert.Error(t, err)
}
