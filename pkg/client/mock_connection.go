package client

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var errMockClosed = errors.New("mock connection closed")

// MockConn is a test implementation of Conn. Frames pushed with Deliver are
// returned by ReadMessage; frames written are recorded in Sent.
type MockConn struct {
	mu sync.Mutex

	incoming chan []byte
	closed   chan struct{}
	dropErr  error

	sent      [][]byte
	writeErr  error
	closeCode int
	isClosed  bool
}

// NewMockConn creates an open mock connection
func NewMockConn() *MockConn {
	return &MockConn{
		incoming: make(chan []byte, 100),
		closed:   make(chan struct{}),
	}
}

// ReadMessage blocks until a frame is delivered or the connection ends
func (c *MockConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.incoming:
		return data, nil
	case <-c.closed:
		// Frames delivered before the drop are still read first
		select {
		case data := <-c.incoming:
			return data, nil
		default:
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.dropErr != nil {
			return nil, c.dropErr
		}
		return nil, errMockClosed
	}
}

// WriteMessage records a frame
func (c *MockConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return errMockClosed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	c.sent = append(c.sent, frame)
	return nil
}

// Close records the close code and ends any blocked read
func (c *MockConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return nil
	}
	c.isClosed = true
	c.closeCode = code
	close(c.closed)
	return nil
}

// Deliver queues a frame from the "server"
func (c *MockConn) Deliver(data []byte) {
	c.incoming <- data
}

// Drop simulates the server ending the connection with err. Use a
// *websocket.CloseError to simulate a close handshake.
func (c *MockConn) Drop(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return
	}
	c.isClosed = true
	c.dropErr = err
	close(c.closed)
}

// DropNormal simulates the server closing with a normal closure
func (c *MockConn) DropNormal() {
	c.Drop(&websocket.CloseError{Code: websocket.CloseNormalClosure})
}

// Sent returns a copy of every frame written
func (c *MockConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Closed reports whether Close or Drop was called
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

// CloseCode returns the code passed to Close, or 0
func (c *MockConn) CloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// SetWriteError makes subsequent writes fail (for testing)
func (c *MockConn) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// MockDialer is a test implementation of Dialer. Each Dial consumes the next
// queued failure, if any, and otherwise returns a fresh MockConn.
type MockDialer struct {
	mu sync.Mutex

	failures []error
	failAll  error
	conns    []*MockConn
	dials    int
	urls     []string
}

// NewMockDialer creates a dialer that always succeeds
func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

// Dial returns a new MockConn or an injected error
func (d *MockDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.urls = append(d.urls, url)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.failAll != nil {
		return nil, d.failAll
	}
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		return nil, err
	}

	conn := NewMockConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

// FailNext queues errors returned by the next dials
func (d *MockDialer) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, errs...)
}

// FailAll makes every dial fail with err; nil restores success
func (d *MockDialer) FailAll(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = err
}

// Dials returns the number of Dial calls
func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Conns returns every connection handed out
func (d *MockDialer) Conns() []*MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockConn, len(d.conns))
	copy(out, d.conns)
	return out
}

// Last returns the most recent connection, or nil
func (d *MockDialer) Last() *MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// OpenConns counts connections that are not closed
func (d *MockDialer) OpenConns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.conns {
		if !c.Closed() {
			n++
		}
	}
	return n
}

// MockExchanger is a test implementation of Exchanger
type MockExchanger struct {
	mu sync.Mutex

	// Respond computes the reply for a request; nil returns Err
	Respond func(body []byte) ([]byte, error)
	Err     error

	requests [][]byte
}

// Exchange records the request and returns the scripted reply
func (e *MockExchanger) Exchange(ctx context.Context, body []byte) ([]byte, error) {
	e.mu.Lock()
	e.requests = append(e.requests, body)
	respond := e.Respond
	err := e.Err
	e.mu.Unlock()

	if respond != nil {
		return respond(body)
	}
	if err == nil {
		err = errors.New("no response scripted")
	}
	return nil, err
}

// Requests returns every request body exchanged
func (e *MockExchanger) Requests() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.requests))
	copy(out, e.requests)
	return out
}
