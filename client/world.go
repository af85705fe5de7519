package client

import (
	"log"

	"openstage/entity"
	"openstage/protocol"

	"github.com/google/uuid"
)

// World is the client's local mirror, reconstructed entirely from received
// messages. It is disposable and never authoritative.
type World struct {
	test    map[uuid.UUID]*entity.Test
	players map[uuid.UUID]*entity.Player
}

func NewWorld(states protocol.EntityStates) *World {
	w := &World{
		test:    make(map[uuid.UUID]*entity.Test, len(states.Test)),
		players: make(map[uuid.UUID]*entity.Player, len(states.Player)),
	}
	for _, state := range states.Test {
		w.test[state.ID] = entity.TestFromState(state)
	}
	for _, state := range states.Player {
		w.players[state.ID] = entity.PlayerFromState(state)
	}
	return w
}

// Apply folds one tick's output into the mirror: removals first, then new
// entities, then deltas. Unknown ids are logged and dropped; the server may
// legitimately be ahead of or behind this mirror by one message.
func (w *World) Apply(output protocol.TickOutput) {
	w.remove(output.RemovedEntityUUIDs)
	w.add(output.NewEntityStates)
	w.processOutputs(output.EntityOutputs)
}

func (w *World) remove(ids protocol.EntitiesIDs) {
	for _, id := range ids.Test {
		if _, ok := w.test[id]; !ok {
			log.Printf("remove unknown test: %s", id)
			continue
		}
		delete(w.test, id)
	}
	for _, id := range ids.Player {
		if _, ok := w.players[id]; !ok {
			log.Printf("remove unknown player: %s", id)
			continue
		}
		delete(w.players, id)
	}
}

func (w *World) add(states protocol.EntityStates) {
	for _, state := range states.Test {
		if _, ok := w.test[state.ID]; ok {
			log.Printf("insert existing test: %s", state.ID)
			continue
		}
		w.test[state.ID] = entity.TestFromState(state)
	}
	for _, state := range states.Player {
		if _, ok := w.players[state.ID]; ok {
			log.Printf("insert existing player: %s", state.ID)
			continue
		}
		w.players[state.ID] = entity.PlayerFromState(state)
	}
}

func (w *World) processOutputs(outputs protocol.EntitiesOutputs) {
	for _, e := range outputs.Test {
		t, ok := w.test[e.ID]
		if !ok {
			log.Printf("output for unknown test: %s", e.ID)
			continue
		}
		if err := t.ProcessOutput(e.Output); err != nil {
			log.Printf("test %s: %v", e.ID, err)
		}
	}
	for _, e := range outputs.Player {
		p, ok := w.players[e.ID]
		if !ok {
			log.Printf("output for unknown player: %s", e.ID)
			continue
		}
		if err := p.ProcessOutput(e.Output); err != nil {
			log.Printf("player %s: %v", e.ID, err)
		}
	}
}

func (w *World) Player(id uuid.UUID) *entity.Player { return w.players[id] }

func (w *World) Test(id uuid.UUID) *entity.Test { return w.test[id] }

func (w *World) PlayerCount() int { return len(w.players) }

func (w *World) TestCount() int { return len(w.test) }

// ForEachPlayer visits every mirrored player. This is the hook a
// presentation layer renders from; the mirror does not care whether anyone
// calls it.
func (w *World) ForEachPlayer(callback func(uuid.UUID, *entity.Player)) {
	for id, p := range w.players {
		callback(id, p)
	}
}

func (w *World) ForEachTest(callback func(uuid.UUID, *entity.Test)) {
	for id, t := range w.test {
		callback(id, t)
	}
}
