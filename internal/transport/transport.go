// Package transport builds the game server's WebSocket endpoint and dials
// it with the login credential attached.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/alclient/internal/api"
)

// Path is the fixed Socket.IO endpoint path.
const Path = "/socket.io/"

// HandshakeTimeout bounds the WebSocket opening handshake.
const HandshakeTimeout = 15 * time.Second

// Endpoint returns the secure WebSocket URL for a server address and port:
//
//	wss://<addr>:<port>/socket.io/?EIO=4&transport=websocket
func Endpoint(addr string, port int) string {
	u := url.URL{
		Scheme:   "wss",
		Host:     net.JoinHostPort(addr, strconv.Itoa(port)),
		Path:     Path,
		RawQuery: url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode(),
	}
	return u.String()
}

// Dial opens a WebSocket to rawURL, sending cred as a cookie. The returned
// connection is ready for session.New.
func Dial(ctx context.Context, rawURL string, cred api.Credential) (*websocket.Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = HandshakeTimeout

	header := http.Header{}
	header.Set("Cookie", cred.Cookie().String())

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s (%s): %w", rawURL, resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", rawURL, err)
	}
	return conn, nil
}
