package world

import (
	"errors"
	"fmt"
	"log"

	"openstage/entity"
	"openstage/protocol"

	"github.com/google/uuid"
)

// ErrEntityNotFound marks an input routed to an id the world no longer
// holds. Callers drop the input; it is never fatal.
var ErrEntityNotFound = errors.New("world: entity not found")

// World is the authoritative collection of live entities plus the
// accumulator for the tick in progress. It is not safe for concurrent use;
// the server serializes all access.
type World struct {
	tick    int64
	test    map[uuid.UUID]*entity.Test
	players map[uuid.UUID]*entity.Player

	acc    protocol.TickOutput
	joined map[uuid.UUID]struct{} // entered since the last tick boundary
}

func New() *World {
	return &World{
		test:    make(map[uuid.UUID]*entity.Test),
		players: make(map[uuid.UUID]*entity.Player),
		joined:  make(map[uuid.UUID]struct{}),
	}
}

func (w *World) CurrentTick() int64 { return w.tick }

func (w *World) PlayerCount() int { return len(w.players) }

func (w *World) TestCount() int { return len(w.test) }

// EntityStates snapshots every live entity, for the initial sync of a newly
// admitted client.
func (w *World) EntityStates() protocol.EntityStates {
	var states protocol.EntityStates
	for _, t := range w.test {
		states.Test = append(states.Test, t.State())
	}
	for _, p := range w.players {
		states.Player = append(states.Player, p.State())
	}
	return states
}

// SpawnPlayer adds a player entity at the given position. Its snapshot is
// broadcast with the next tick's new_entity_states.
func (w *World) SpawnPlayer(position protocol.Vector3) uuid.UUID {
	id := uuid.New()
	w.players[id] = entity.NewPlayer(id, position)
	w.joined[id] = struct{}{}
	return id
}

// SpawnTest adds a diagnostic patrol entity at the given position.
func (w *World) SpawnTest(position protocol.Vector3) uuid.UUID {
	id := uuid.New()
	w.test[id] = entity.NewTest(id, position)
	w.joined[id] = struct{}{}
	return id
}

// RemovePlayer drops a player from the world. Removing an id that joined
// within the same tick window scrubs it entirely: clients never learn about
// an entity that came and went between broadcasts. Idempotent.
func (w *World) RemovePlayer(id uuid.UUID) {
	if _, ok := w.players[id]; !ok {
		return
	}
	delete(w.players, id)
	if _, fresh := w.joined[id]; fresh {
		delete(w.joined, id)
		return
	}
	w.scrubPlayerOutputs(id)
	w.acc.RemovedEntityUUIDs.Player = append(w.acc.RemovedEntityUUIDs.Player, id)
}

// RemoveTest despawns a diagnostic entity, with the same same-tick scrub
// rule as RemovePlayer.
func (w *World) RemoveTest(id uuid.UUID) {
	if _, ok := w.test[id]; !ok {
		return
	}
	delete(w.test, id)
	if _, fresh := w.joined[id]; fresh {
		delete(w.joined, id)
		return
	}
	w.scrubTestOutputs(id)
	w.acc.RemovedEntityUUIDs.Test = append(w.acc.RemovedEntityUUIDs.Test, id)
}

// ApplyPlayerInput routes one queued input to its player. Inputs are applied
// in the order the server drained them; the tick boundary is the only
// ordering clients may rely on.
func (w *World) ApplyPlayerInput(id uuid.UUID, input protocol.PlayerEntityInput) error {
	player, ok := w.players[id]
	if !ok {
		return fmt.Errorf("%w: player %s", ErrEntityNotFound, id)
	}
	output, err := player.ProcessInput(input)
	if err != nil {
		return err
	}
	if err := player.ProcessOutput(output); err != nil {
		return err
	}
	if _, fresh := w.joined[id]; !fresh {
		w.acc.EntityOutputs.Player = append(w.acc.EntityOutputs.Player, protocol.PlayerEntityOutputEntry{
			ID:     id,
			Output: output,
		})
	}
	return nil
}

// Tick advances time-based behavior, folds entities that joined this window
// into new_entity_states, and drains the accumulator into one TickOutput.
// The next tick starts from an empty accumulator.
func (w *World) Tick() protocol.TickOutput {
	w.tick++

	for id, t := range w.test {
		output := t.Advance(w.tick)
		if err := t.ProcessOutput(output); err != nil {
			log.Printf("test %s: %v", id, err)
			continue
		}
		if _, fresh := w.joined[id]; fresh {
			continue
		}
		w.acc.EntityOutputs.Test = append(w.acc.EntityOutputs.Test, protocol.TestEntityOutputEntry{
			ID:     id,
			Output: output,
		})
	}

	for id := range w.joined {
		if t, ok := w.test[id]; ok {
			w.acc.NewEntityStates.Test = append(w.acc.NewEntityStates.Test, t.State())
		} else if p, ok := w.players[id]; ok {
			w.acc.NewEntityStates.Player = append(w.acc.NewEntityStates.Player, p.State())
		}
	}
	w.joined = make(map[uuid.UUID]struct{})

	return w.acc.Take()
}

func (w *World) scrubPlayerOutputs(id uuid.UUID) {
	kept := w.acc.EntityOutputs.Player[:0]
	for _, e := range w.acc.EntityOutputs.Player {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	w.acc.EntityOutputs.Player = kept
}

func (w *World) scrubTestOutputs(id uuid.UUID) {
	kept := w.acc.EntityOutputs.Test[:0]
	for _, e := range w.acc.EntityOutputs.Test {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	w.acc.EntityOutputs.Test = kept
}
