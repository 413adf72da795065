package dialer

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KeepAlive(t *testing.T) {
	dialer := New(3 * time.Second)
	assert.Equal(t, 3*time.Second, dialer.Timeout)
	assert.True(t, dialer.KeepAliveConfig.Enable)
}

func TestHTTPClient_Transport(t *testing.T) {
	client := HTTPClient(time.Second)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.DialContext)
	assert.Equal(t, time.Second, transport.TLSHandshakeTimeout)
}
