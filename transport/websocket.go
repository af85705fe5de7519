package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"openstage/protocol"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	wsDialTimeout  = 10 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsRecvBuffer   = 256
)

// wsCore holds the state shared by both websocket transport directions.
// A pump goroutine reads raw frames into recv so Receive never blocks;
// decoding happens in Receive so one bad payload stays one bad message.
type wsCore struct {
	mu     sync.Mutex
	status Status
	err    error
	conn   *websocket.Conn
	recv   chan json.RawMessage
	cancel context.CancelFunc
}

func newWSCore() *wsCore {
	return &wsCore{
		status: StatusConnecting,
		recv:   make(chan json.RawMessage, wsRecvBuffer),
	}
}

func (c *wsCore) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Status: c.status, Err: c.err}
}

func (c *wsCore) attach(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	if c.status == StatusConnecting {
		c.status = StatusConnected
	}
	c.mu.Unlock()
	go c.pump(ctx)
}

func (c *wsCore) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusClosed || c.status == StatusFailed {
		return
	}
	c.status = StatusFailed
	c.err = err
}

func (c *wsCore) pump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				// Close already marked the state.
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
				c.markClosed()
			default:
				c.fail(err)
			}
			return
		}
		select {
		case c.recv <- json.RawMessage(data):
		case <-ctx.Done():
			return
		}
	}
}

func (c *wsCore) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusClosed || c.status == StatusFailed {
		return
	}
	c.status = StatusClosed
}

func (c *wsCore) receiveRaw() (json.RawMessage, error) {
	select {
	case data := <-c.recv:
		return data, nil
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusClosed:
		return nil, ErrClosed
	case StatusFailed:
		return nil, c.err
	}
	return nil, nil
}

func (c *wsCore) send(v interface{}) error {
	c.mu.Lock()
	conn, status, err := c.conn, c.status, c.err
	c.mu.Unlock()
	switch status {
	case StatusConnecting:
		return ErrNotConnected
	case StatusClosed:
		return ErrClosed
	case StatusFailed:
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *wsCore) close() error {
	c.mu.Lock()
	conn := c.conn
	terminal := c.status == StatusClosed || c.status == StatusFailed
	if !terminal {
		c.status = StatusClosed
	}
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn != nil && !terminal {
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

// WebSocketDialer connects client transports to a websocket endpoint.
type WebSocketDialer struct {
	URL string
}

// Connect starts dialing in the background and returns immediately; the
// transport reports Connecting until the dial resolves.
func (d *WebSocketDialer) Connect() Transport {
	ws := &WebSocket{core: newWSCore()}
	ctx, cancel := context.WithCancel(context.Background())
	ws.core.cancel = cancel
	go func() {
		dialCtx, dialCancel := context.WithTimeout(ctx, wsDialTimeout)
		defer dialCancel()
		conn, _, err := websocket.Dial(dialCtx, d.URL, nil)
		if err != nil {
			ws.core.fail(fmt.Errorf("dial %s: %w", d.URL, err))
			return
		}
		ws.core.attach(ctx, conn)
	}()
	return ws
}

// WebSocket is the client end of a websocket connection.
type WebSocket struct {
	core *wsCore
}

func (w *WebSocket) State() State { return w.core.State() }

func (w *WebSocket) Send(m protocol.ClientMessage) error { return w.core.send(m) }

func (w *WebSocket) Receive() (*protocol.ServerMessage, error) {
	data, err := w.core.receiveRaw()
	if data == nil || err != nil {
		return nil, err
	}
	var m protocol.ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformedMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (w *WebSocket) Close() error { return w.core.close() }

// NewWebSocketServer wraps an accepted connection as the server's end.
func NewWebSocketServer(conn *websocket.Conn) *WebSocketServer {
	s := &WebSocketServer{core: newWSCore()}
	ctx, cancel := context.WithCancel(context.Background())
	s.core.cancel = cancel
	s.core.attach(ctx, conn)
	return s
}

// WebSocketServer is the server's end of an accepted websocket connection.
type WebSocketServer struct {
	core *wsCore
}

func (s *WebSocketServer) State() State { return s.core.State() }

func (s *WebSocketServer) Send(m protocol.ServerMessage) error { return s.core.send(m) }

func (s *WebSocketServer) Receive() (*protocol.ClientMessage, error) {
	data, err := s.core.receiveRaw()
	if data == nil || err != nil {
		return nil, err
	}
	var m protocol.ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformedMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *WebSocketServer) Close() error { return s.core.close() }
