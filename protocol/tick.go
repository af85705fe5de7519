package protocol

// TickOutput is the complete description of one tick's effect on the world.
// Entities that entered the world this tick appear as full snapshots in
// NewEntityStates, never in EntityOutputs.
type TickOutput struct {
	NewEntityStates    EntityStates    `json:"new_entity_states"`
	EntityOutputs      EntitiesOutputs `json:"entity_outputs"`
	RemovedEntityUUIDs EntitiesIDs     `json:"removed_entity_uuids"`
}

// Take drains t and returns its previous contents. A second Take without
// refilling yields an empty output, so nothing is ever delivered twice.
func (t *TickOutput) Take() TickOutput {
	out := *t
	*t = TickOutput{}
	return out
}

func (t *TickOutput) Empty() bool {
	return t.NewEntityStates.Empty() && t.EntityOutputs.Empty() && t.RemovedEntityUUIDs.Empty()
}
