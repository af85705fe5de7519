package entity

import (
	"errors"
	"testing"

	"openstage/protocol"

	"github.com/google/uuid"
)

func TestPlayerFromStateKeepsIdentity(t *testing.T) {
	state := protocol.BaseEntityData{ID: uuid.New(), Position: protocol.Vector3{1, 2, 3}}
	p := PlayerFromState(state)
	if p.ID() != state.ID {
		t.Fatalf("want %s, got %s", state.ID, p.ID())
	}
	if p.Position() != state.Position {
		t.Fatalf("want %v, got %v", state.Position, p.Position())
	}
	if p.State() != state {
		t.Fatalf("snapshot must round-trip, got %+v", p.State())
	}
}

func TestPlayerInputBecomesOutput(t *testing.T) {
	p := NewPlayer(uuid.New(), protocol.Vector3{})

	output, err := p.ProcessInput(protocol.PlayerInputNewPosition(protocol.Vector3{4, 0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if p.Position() != (protocol.Vector3{}) {
		t.Fatal("translating input must not mutate")
	}
	if err := p.ProcessOutput(output); err != nil {
		t.Fatal(err)
	}
	if p.Position() != (protocol.Vector3{4, 0, 0}) {
		t.Fatalf("want moved player, got %v", p.Position())
	}
}

func TestPlayerRejectsUnknownDeltas(t *testing.T) {
	p := NewPlayer(uuid.New(), protocol.Vector3{})

	_, err := p.ProcessInput(protocol.PlayerEntityInput{Type: "teleport"})
	if !errors.Is(err, protocol.ErrUnknownMessage) {
		t.Fatalf("want ErrUnknownMessage, got %v", err)
	}
	if err := p.ProcessOutput(protocol.PlayerEntityOutput{Type: protocol.OutputNewPosition}); !errors.Is(err, protocol.ErrMalformedMessage) {
		t.Fatalf("want ErrMalformedMessage for missing position, got %v", err)
	}
}

func TestTestEntityPatrolIsDeterministic(t *testing.T) {
	origin := protocol.Vector3{10, 5, -3}
	a := NewTest(uuid.New(), origin)
	b := TestFromState(a.State())

	for tick := int64(1); tick <= 130; tick++ {
		outA := a.Advance(tick)
		outB := b.Advance(tick)
		if *outA.NewPosition != *outB.NewPosition {
			t.Fatalf("tick %d: patrol diverged, %v vs %v", tick, *outA.NewPosition, *outB.NewPosition)
		}
		if err := a.ProcessOutput(outA); err != nil {
			t.Fatal(err)
		}
	}
	// Height never changes; the patrol is planar around the origin.
	if a.Position()[1] != origin[1] {
		t.Fatalf("patrol must stay at its origin height, got %v", a.Position())
	}
}
