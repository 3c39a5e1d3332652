package conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Close codes with special meaning to the manager.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// Transport is one open message-oriented connection.
type Transport interface {
	// Read blocks for the next inbound frame. When the connection ends it
	// returns an error, preferably a *CloseError describing how.
	Read(ctx context.Context) ([]byte, error)
	// Write sends one frame.
	Write(ctx context.Context, data []byte) error
	// Close closes the connection with the given close code.
	Close(code int, reason string) error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// CloseError reports how a transport closed. WasClean is true when a close
// frame was exchanged.
type CloseError struct {
	Code     int
	WasClean bool
	Err      error
}

func (e *CloseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection closed (code %d, clean %t): %v", e.Code, e.WasClean, e.Err)
	}
	return fmt.Sprintf("connection closed (code %d, clean %t)", e.Code, e.WasClean)
}

func (e *CloseError) Unwrap() error { return e.Err }

// closeInfo extracts the close code and cleanliness from a read error. Any
// error that is not a *CloseError counts as an abnormal closure.
func closeInfo(err error) (code int, clean bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.WasClean
	}
	return CloseAbnormal, false
}

// WebSocketDialer dials WebSocket transports.
type WebSocketDialer struct {
	// ReadLimit caps inbound frame size in bytes; zero keeps the library default.
	ReadLimit int64
	Header    http.Header
}

// Dial opens a WebSocket connection to url.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	if d.ReadLimit > 0 {
		c.SetReadLimit(d.ReadLimit)
	}
	return &wsTransport{c: c}, nil
}

type wsTransport struct {
	c *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.c.Read(ctx)
	if err != nil {
		if code := websocket.CloseStatus(err); code != -1 {
			return nil, &CloseError{Code: int(code), WasClean: true, Err: err}
		}
		return nil, &CloseError{Code: CloseAbnormal, Err: err}
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.c.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close(code int, reason string) error {
	return t.c.Close(websocket.StatusCode(code), reason)
}
