package client

import (
	"errors"
	"fmt"
	"log"

	"openstage/protocol"
	"openstage/transport"

	"github.com/google/uuid"
)

// Status is the connection phase an observer (GUI, logs) can display.
type Status int

const (
	StatusConnecting Status = iota
	StatusHandshaking
	StatusSyncingWorld
	StatusConnected
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusHandshaking:
		return "handshaking"
	case StatusSyncingWorld:
		return "syncing world"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

var ErrVersionMismatch = errors.New("client: incompatible protocol version")

type phase int

const (
	phaseSendHandshake phase = iota
	phaseAwaitHandshake
	phaseAwaitSyncWorld
	phaseConnected
)

// Client consumes a transport: it performs the handshake, applies the
// initial world sync, and keeps a local mirror up to date from tick
// outputs. Tick pumps it once; the caller decides the cadence.
type Client struct {
	transport     transport.Transport
	phase         phase
	failed        bool
	serverVersion *protocol.VersionData
	playerID      uuid.UUID
	world         *World
	onTickOutput  func(protocol.TickOutput)
}

func New(t transport.Transport) *Client {
	return &Client{transport: t}
}

// OnTickOutput registers a hook invoked after each applied tick, for a
// presentation layer that wants deltas rather than polling the mirror.
func (c *Client) OnTickOutput(fn func(protocol.TickOutput)) {
	c.onTickOutput = fn
}

// World returns the mirror, nil until the initial sync completes.
func (c *Client) World() *World { return c.world }

func (c *Client) PlayerID() uuid.UUID { return c.playerID }

func (c *Client) ServerVersion() *protocol.VersionData { return c.serverVersion }

func (c *Client) Status() Status {
	switch c.transport.State().Status {
	case transport.StatusConnecting:
		return StatusConnecting
	case transport.StatusClosed:
		return StatusClosed
	case transport.StatusFailed:
		return StatusFailed
	}
	if c.failed {
		return StatusFailed
	}
	switch c.phase {
	case phaseSendHandshake, phaseAwaitHandshake:
		return StatusHandshaking
	case phaseAwaitSyncWorld:
		return StatusSyncingWorld
	}
	return StatusConnected
}

// Tick advances the connection state machine one step and drains pending
// server messages. A returned error is terminal for this connection; the
// caller should Close.
func (c *Client) Tick() error {
	switch state := c.transport.State(); state.Status {
	case transport.StatusConnecting:
		return nil
	case transport.StatusClosed:
		return transport.ErrClosed
	case transport.StatusFailed:
		return state.Err
	}

	switch c.phase {
	case phaseSendHandshake:
		if err := c.transport.Send(protocol.ClientHandshake(protocol.CurrentVersion())); err != nil {
			return c.fail(err)
		}
		c.phase = phaseAwaitHandshake
		return nil

	case phaseAwaitHandshake:
		msg, err := c.receive()
		if msg == nil || err != nil {
			return err
		}
		if msg.Type != protocol.TypeHandshake {
			return c.fail(fmt.Errorf("%w: %q before handshake", protocol.ErrMalformedMessage, msg.Type))
		}
		version := msg.Handshake.Version
		if !protocol.CurrentVersion().Compatible(version) {
			return c.fail(fmt.Errorf("%w: server %s, client %s", ErrVersionMismatch, version, protocol.CurrentVersion()))
		}
		log.Printf("server version %s", version)
		c.serverVersion = &version
		c.phase = phaseAwaitSyncWorld
		return nil

	case phaseAwaitSyncWorld:
		msg, err := c.receive()
		if msg == nil || err != nil {
			return err
		}
		if msg.Type != protocol.TypeSyncWorld {
			return c.fail(fmt.Errorf("%w: %q before world sync", protocol.ErrMalformedMessage, msg.Type))
		}
		c.playerID = msg.SyncWorld.PlayerID
		c.world = NewWorld(msg.SyncWorld.EntityStates)
		c.phase = phaseConnected
		log.Printf("world synced, player %s", c.playerID)
		return nil
	}

	for {
		msg, err := c.receive()
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		switch msg.Type {
		case protocol.TypeTickOutput:
			c.world.Apply(*msg.TickOutput)
			if c.onTickOutput != nil {
				c.onTickOutput(*msg.TickOutput)
			}
		default:
			return c.fail(fmt.Errorf("%w: %q after world sync", protocol.ErrMalformedMessage, msg.Type))
		}
	}
}

// SendInput forwards local input to the server. Valid only once connected.
func (c *Client) SendInput(input protocol.PlayerEntityInput) error {
	if c.phase != phaseConnected {
		return transport.ErrNotConnected
	}
	return c.transport.Send(protocol.ClientPlayerInput(input))
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// receive polls the transport once, skipping messages this build cannot
// decode: unknown variants from a newer server are dropped, not fatal.
func (c *Client) receive() (*protocol.ServerMessage, error) {
	for {
		msg, err := c.transport.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownMessage) || errors.Is(err, protocol.ErrMalformedMessage) {
				log.Printf("skipping message: %v", err)
				continue
			}
			return nil, c.fail(err)
		}
		return msg, nil
	}
}

func (c *Client) fail(err error) error {
	c.failed = true
	return err
}
