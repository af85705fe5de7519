// Package transport decouples the sync protocol from any concrete channel.
// The same server and client logic runs over a websocket or an in-process
// pipe; only the Dialer differs.
package transport

import (
	"errors"

	"openstage/protocol"
)

// Status is the lifecycle phase of a connection.
//
//	Connecting -> Connected -> Closed
//	Connecting|Connected -> Failed
//
// Closed and Failed are terminal; no transport ever leaves them.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// State pairs a Status with the failure cause when Status is StatusFailed.
// Querying it has no side effects.
type State struct {
	Status Status
	Err    error
}

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrClosed       = errors.New("transport: closed")
)

// Transport is the client's end of a connection.
//
// Receive never blocks: it returns (nil, nil) when nothing is pending. A
// decode failure on a single message surfaces as a receive error without
// tearing down the connection, since the framing stays byte-exact.
type Transport interface {
	State() State
	Send(protocol.ClientMessage) error
	Receive() (*protocol.ServerMessage, error)
	Close() error
}

// ServerTransport is the server's end of a connection, with the message
// directions mirrored.
type ServerTransport interface {
	State() State
	Send(protocol.ServerMessage) error
	Receive() (*protocol.ClientMessage, error)
	Close() error
}

// Dialer establishes client transports. Connect returns immediately; setup
// may complete in the background, with progress reported through State.
type Dialer interface {
	Connect() Transport
}
