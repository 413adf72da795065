package wslog

import (
	"net/url"
	"path"
	"strings"

	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	E "github.com/sagernet/sing/common/exceptions"
)

// BuildURL returns the websocket endpoint <server>/logger[/<clientID>].
// http and https schemes are mapped to ws and wss.
func BuildURL(server string, clientID string) (string, error) {
	serverURL, err := url.Parse(server)
	if err != nil {
		return "", E.Cause(err, "parse server url")
	}
	switch strings.ToLower(serverURL.Scheme) {
	case "http":
		serverURL.Scheme = "ws"
	case "https":
		serverURL.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", E.New("unsupported server scheme: ", serverURL.Scheme)
	}
	if serverURL.Host == "" {
		return "", E.New("missing server host: ", server)
	}
	basePath, baseRawPath := serverURL.Path, serverURL.EscapedPath()
	serverURL.Path = path.Join("/", basePath, C.LoggerPath)
	serverURL.RawPath = ""
	if clientID != "" {
		serverURL.RawPath = path.Join("/", baseRawPath, C.LoggerPath) + "/" + url.PathEscape(clientID)
		serverURL.Path += "/" + clientID
	}
	return serverURL.String(), nil
}
