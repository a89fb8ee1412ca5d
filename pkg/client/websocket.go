package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeolun/votefeed/pkg/protocol"
)

const (
	// closeWait bounds how long a close frame may take to send
	closeWait = time.Second

	// maxMessageSize is one full frame plus its length prefix
	maxMessageSize = protocol.MaxFrameSize + 4
)

// WebSocketDialer dials the persistent connection with gorilla/websocket
type WebSocketDialer struct {
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
}

// NewWebSocketDialer creates a dialer with the given write timeout
func NewWebSocketDialer(writeTimeout time.Duration) *WebSocketDialer {
	return &WebSocketDialer{
		Dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		WriteTimeout: writeTimeout,
	}
}

// Dial opens a WebSocket connection to url
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	ws.SetReadLimit(maxMessageSize)
	return &wsConn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}

// wsConn carries one frame per binary WebSocket message
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.BinaryMessage {
			return data, nil
		}
		// Text frames are not part of the protocol
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close frame with code and closes the socket. It is safe to
// call while ReadMessage is blocked in another goroutine.
func (c *wsConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		// Best effort; the peer may already be gone
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// WebSocketURL derives the persistent endpoint from the server base URL:
// http becomes ws, https becomes wss, and the path is /ws/.
func WebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/"
	u.RawQuery = ""
	return u.String(), nil
}
