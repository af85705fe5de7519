package protocol

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Message type tags. A receiver rejects tags it does not recognize instead
// of guessing, which is what keeps the envelope forward-compatible.
const (
	TypeHandshake   = "handshake"
	TypeSyncWorld   = "sync_world"
	TypeTickOutput  = "tick_output"
	TypePlayerInput = "player_input"
)

var (
	// ErrUnknownMessage marks a type tag this build does not understand,
	// e.g. a variant added by a future protocol version.
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	// ErrMalformedMessage marks an envelope whose payload does not match
	// its type tag.
	ErrMalformedMessage = errors.New("protocol: malformed message")
)

type HandshakeData struct {
	Version VersionData `json:"version"`
}

type SyncWorldData struct {
	PlayerID     uuid.UUID    `json:"player_id"`
	EntityStates EntityStates `json:"entity_states"`
}

// ServerMessage is the envelope for everything the server sends. Exactly
// one payload field is set, selected by Type.
type ServerMessage struct {
	Type       string         `json:"type"`
	Handshake  *HandshakeData `json:"handshake,omitempty"`
	SyncWorld  *SyncWorldData `json:"sync_world,omitempty"`
	TickOutput *TickOutput    `json:"tick_output,omitempty"`
}

func ServerHandshake(version VersionData) ServerMessage {
	return ServerMessage{Type: TypeHandshake, Handshake: &HandshakeData{Version: version}}
}

func ServerSyncWorld(playerID uuid.UUID, states EntityStates) ServerMessage {
	return ServerMessage{
		Type:      TypeSyncWorld,
		SyncWorld: &SyncWorldData{PlayerID: playerID, EntityStates: states},
	}
}

func ServerTickOutput(output TickOutput) ServerMessage {
	return ServerMessage{Type: TypeTickOutput, TickOutput: &output}
}

// Validate checks that the type tag is known and its payload is present.
func (m *ServerMessage) Validate() error {
	switch m.Type {
	case TypeHandshake:
		if m.Handshake == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, m.Type)
		}
	case TypeSyncWorld:
		if m.SyncWorld == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, m.Type)
		}
	case TypeTickOutput:
		if m.TickOutput == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, m.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return nil
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	Type        string             `json:"type"`
	Handshake   *HandshakeData     `json:"handshake,omitempty"`
	PlayerInput *PlayerEntityInput `json:"player_input,omitempty"`
}

func ClientHandshake(version VersionData) ClientMessage {
	return ClientMessage{Type: TypeHandshake, Handshake: &HandshakeData{Version: version}}
}

func ClientPlayerInput(input PlayerEntityInput) ClientMessage {
	return ClientMessage{Type: TypePlayerInput, PlayerInput: &input}
}

func (m *ClientMessage) Validate() error {
	switch m.Type {
	case TypeHandshake:
		if m.Handshake == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, m.Type)
		}
	case TypePlayerInput:
		if m.PlayerInput == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, m.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return nil
}
