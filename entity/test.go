package entity

import (
	"fmt"
	"math"

	"openstage/protocol"

	"github.com/google/uuid"
)

const (
	patrolRadius = 2.0
	patrolPeriod = 64 // ticks per lap
)

// Test is the diagnostic entity kind. The server moves it along a small
// deterministic circle so clients see traffic before any player exists.
type Test struct {
	base   protocol.BaseEntityData
	origin protocol.Vector3
}

func NewTest(id uuid.UUID, position protocol.Vector3) *Test {
	return &Test{
		base:   protocol.BaseEntityData{ID: id, Position: position},
		origin: position,
	}
}

// TestFromState reconstructs a test entity from its snapshot. Mirrors built
// this way never advance the patrol themselves; they only apply outputs.
func TestFromState(state protocol.BaseEntityData) *Test {
	return &Test{base: state, origin: state.Position}
}

func (t *Test) Base() *protocol.BaseEntityData { return &t.base }

func (t *Test) ID() uuid.UUID { return t.base.ID }

func (t *Test) Position() protocol.Vector3 { return t.base.Position }

func (t *Test) State() protocol.BaseEntityData { return t.base }

// Advance computes the patrol step for the given tick. The caller applies
// it through ProcessOutput like any other delta.
func (t *Test) Advance(tick int64) protocol.TestEntityOutput {
	angle := 2 * math.Pi * float64(tick%patrolPeriod) / patrolPeriod
	return protocol.TestNewPosition(protocol.Vector3{
		t.origin[0] + patrolRadius*math.Cos(angle),
		t.origin[1],
		t.origin[2] + patrolRadius*math.Sin(angle),
	})
}

func (t *Test) ProcessOutput(output protocol.TestEntityOutput) error {
	switch output.Type {
	case protocol.OutputNewPosition:
		if output.NewPosition == nil {
			return fmt.Errorf("%w: test %s without position", protocol.ErrMalformedMessage, output.Type)
		}
		t.base.Position = *output.NewPosition
		return nil
	}
	return fmt.Errorf("%w: test output %q", protocol.ErrUnknownMessage, output.Type)
}
