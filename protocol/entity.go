package protocol

import "github.com/google/uuid"

// Vector3 is a position or offset in world space, serialized as [x, y, z].
type Vector3 [3]float64

// BaseEntityData is the minimal state every entity kind exposes. The id is
// assigned at spawn and never changes or gets reused.
type BaseEntityData struct {
	ID       uuid.UUID `json:"id"`
	Position Vector3   `json:"position"`
}

// EntityStates is a per-kind collection of full entity snapshots. It is sent
// only for the initial world sync and for entities a client has no prior
// state for. Order within a kind carries no meaning.
type EntityStates struct {
	Test   []BaseEntityData `json:"test"`
	Player []BaseEntityData `json:"player"`
}

func (s *EntityStates) Empty() bool {
	return len(s.Test) == 0 && len(s.Player) == 0
}

// Delta tags shared by the per-kind output and input types.
const (
	OutputNewPosition = "new_position"
	InputNewPosition  = "new_position"
)

// TestEntityOutput is one observable change of a test entity.
type TestEntityOutput struct {
	Type        string   `json:"type"`
	NewPosition *Vector3 `json:"new_position,omitempty"`
}

func TestNewPosition(p Vector3) TestEntityOutput {
	return TestEntityOutput{Type: OutputNewPosition, NewPosition: &p}
}

// PlayerEntityOutput is one observable change of a player entity.
type PlayerEntityOutput struct {
	Type        string   `json:"type"`
	NewPosition *Vector3 `json:"new_position,omitempty"`
}

func PlayerNewPosition(p Vector3) PlayerEntityOutput {
	return PlayerEntityOutput{Type: OutputNewPosition, NewPosition: &p}
}

// PlayerEntityInput is a client-originated request to change its player.
type PlayerEntityInput struct {
	Type        string   `json:"type"`
	NewPosition *Vector3 `json:"new_position,omitempty"`
}

func PlayerInputNewPosition(p Vector3) PlayerEntityInput {
	return PlayerEntityInput{Type: InputNewPosition, NewPosition: &p}
}

type TestEntityOutputEntry struct {
	ID     uuid.UUID        `json:"id"`
	Output TestEntityOutput `json:"output"`
}

type PlayerEntityOutputEntry struct {
	ID     uuid.UUID          `json:"id"`
	Output PlayerEntityOutput `json:"output"`
}

// EntitiesOutputs carries one tick's deltas for pre-existing entities.
// An id absent from a tick's outputs means "no change this tick".
type EntitiesOutputs struct {
	Test   []TestEntityOutputEntry   `json:"test"`
	Player []PlayerEntityOutputEntry `json:"player"`
}

func (o *EntitiesOutputs) Empty() bool {
	return len(o.Test) == 0 && len(o.Player) == 0
}

// EntitiesIDs lists entities removed this tick, per kind. A removed id
// never reappears.
type EntitiesIDs struct {
	Test   []uuid.UUID `json:"test"`
	Player []uuid.UUID `json:"player"`
}

func (i *EntitiesIDs) Empty() bool {
	return len(i.Test) == 0 && len(i.Player) == 0
}
