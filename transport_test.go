package parbreak

import (
	"fmt"
	"sync"
)

// fakeConn is an in-memory Conn, letting session/dispatcher tests drive the
// INIT->IDLE->BUSY->GONE state machine without opening a real socket, per
// the Conn interface's stated purpose.
type fakeConn struct {
	name string

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	fromPeer chan []byte
	toPeer   chan []byte
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{
		name:     name,
		done:     make(chan struct{}),
		fromPeer: make(chan []byte, 16),
		toPeer:   make(chan []byte, 16),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.fromPeer:
		return data, nil
	case <-c.done:
		return nil, fmt.Errorf("fakeConn %s: closed", c.name)
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("fakeConn %s: closed", c.name)
	}
	c.mu.Unlock()
	select {
	case c.toPeer <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("fakeConn %s: closed", c.name)
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) RemoteName() string {
	return c.name
}

// deliver injects data as if it arrived from the peer.
func (c *fakeConn) deliver(data []byte) {
	c.fromPeer <- data
}

// sent blocks until the session has written a frame, for assertions.
func (c *fakeConn) sent() []byte {
	return <-c.toPeer
}
