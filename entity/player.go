package entity

import (
	"fmt"

	"openstage/protocol"

	"github.com/google/uuid"
)

// Player is the entity kind owned by a connected client.
type Player struct {
	base protocol.BaseEntityData
}

func NewPlayer(id uuid.UUID, position protocol.Vector3) *Player {
	return &Player{base: protocol.BaseEntityData{ID: id, Position: position}}
}

func PlayerFromState(state protocol.BaseEntityData) *Player {
	return &Player{base: state}
}

func (p *Player) Base() *protocol.BaseEntityData { return &p.base }

func (p *Player) ID() uuid.UUID { return p.base.ID }

func (p *Player) Position() protocol.Vector3 { return p.base.Position }

func (p *Player) State() protocol.BaseEntityData { return p.base }

// ProcessInput translates a client input into the delta it would cause.
// It does not mutate; the caller applies the result through ProcessOutput
// so inputs and broadcast deltas go through one code path.
func (p *Player) ProcessInput(input protocol.PlayerEntityInput) (protocol.PlayerEntityOutput, error) {
	switch input.Type {
	case protocol.InputNewPosition:
		if input.NewPosition == nil {
			return protocol.PlayerEntityOutput{}, fmt.Errorf("%w: player %s without position", protocol.ErrMalformedMessage, input.Type)
		}
		return protocol.PlayerNewPosition(*input.NewPosition), nil
	}
	return protocol.PlayerEntityOutput{}, fmt.Errorf("%w: player input %q", protocol.ErrUnknownMessage, input.Type)
}

func (p *Player) ProcessOutput(output protocol.PlayerEntityOutput) error {
	switch output.Type {
	case protocol.OutputNewPosition:
		if output.NewPosition == nil {
			return fmt.Errorf("%w: player %s without position", protocol.ErrMalformedMessage, output.Type)
		}
		p.base.Position = *output.NewPosition
		return nil
	}
	return fmt.Errorf("%w: player output %q", protocol.ErrUnknownMessage, output.Type)
}
