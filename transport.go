package parbreak

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one physical bidirectional connection carrying wire frames.
// Both the coordinator's worker sessions and the worker runner talk to a
// Conn rather than to a websocket directly, so tests can substitute an
// in-memory fake for S3/S6-style scenarios without opening real sockets.
type Conn interface {
	// ReadMessage blocks for the next frame. Returns an error (any error,
	// including normal close) once the peer is gone.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one frame.
	WriteMessage([]byte) error
	// Close tears down the connection. Safe to call more than once.
	Close() error
	// RemoteName is a human-readable peer identity for status reporting.
	RemoteName() string
}

// wsConn adapts a *websocket.Conn to Conn.
type wsConn struct {
	ws   *websocket.Conn
	name string
}

func newWSConn(ws *websocket.Conn, name string) *wsConn {
	return &wsConn{ws: ws, name: name}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) RemoteName() string {
	return c.name
}

var upgrader = websocket.Upgrader{
	// Any incoming connection is accepted; spec.md explicitly leaves path,
	// subprotocol, and origin unconstrained for this small trusted-cluster
	// use case.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Upgrade promotes an HTTP request to a websocket Conn, naming it after the
// remote address for status/log output.
func Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	return newWSConn(ws, r.RemoteAddr), nil
}

// Dial opens a worker-side connection to a coordinator at url (e.g.
// "ws://host:55000/").
func Dial(url string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWSConn(ws, url), nil
}

// DialWithRetry retries Dial with backoff until it succeeds or attempts is
// exhausted, mirroring the original implementation's "try a few times, then
// give up" worker bootstrap behavior.
func DialWithRetry(url string, attempts int, backoff time.Duration) (Conn, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var c Conn
		c, err = Dial(url)
		if err == nil {
			return c, nil
		}
		time.Sleep(backoff)
	}
	return nil, fmt.Errorf("dial %s: giving up after %d attempts: %w", url, attempts, err)
}
