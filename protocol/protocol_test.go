package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestVersionCompatible(t *testing.T) {
	current := CurrentVersion()
	if !current.Compatible(current) {
		t.Fatal("version must be compatible with itself")
	}

	patch := current
	patch.Code[2]++
	patch.Name = "whatever"
	if !current.Compatible(patch) {
		t.Fatalf("patch bump must stay compatible: %s vs %s", current, patch)
	}

	minor := current
	minor.Code[1]++
	if current.Compatible(minor) {
		t.Fatalf("minor bump must be incompatible: %s vs %s", current, minor)
	}

	major := current
	major.Code[0]++
	if current.Compatible(major) {
		t.Fatalf("major bump must be incompatible: %s vs %s", current, major)
	}
}

func TestUnknownMessageRejected(t *testing.T) {
	// A variant from a future protocol version: decodes, never applies.
	data := []byte(`{"type":"teleport_request","teleport_request":{"x":1}}`)

	var server ServerMessage
	if err := json.Unmarshal(data, &server); err != nil {
		t.Fatalf("unknown variant must still decode: %v", err)
	}
	if err := server.Validate(); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("want ErrUnknownMessage, got %v", err)
	}

	var client ClientMessage
	if err := json.Unmarshal(data, &client); err != nil {
		t.Fatalf("unknown variant must still decode: %v", err)
	}
	if err := client.Validate(); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("want ErrUnknownMessage, got %v", err)
	}
}

func TestMissingPayloadRejected(t *testing.T) {
	var m ServerMessage
	if err := json.Unmarshal([]byte(`{"type":"sync_world"}`), &m); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("want ErrMalformedMessage, got %v", err)
	}
}

func TestEnvelopePreservesTags(t *testing.T) {
	playerID := uuid.New()
	msg := ServerSyncWorld(playerID, EntityStates{
		Player: []BaseEntityData{{ID: playerID, Position: Vector3{1, 2, 3}}},
	})

	data, err := json.Marshal(&msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded ServerMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if err := decoded.Validate(); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != TypeSyncWorld {
		t.Fatalf("type tag lost: %q", decoded.Type)
	}
	if decoded.SyncWorld.PlayerID != playerID {
		t.Fatalf("player id lost: %s", decoded.SyncWorld.PlayerID)
	}
	if got := decoded.SyncWorld.EntityStates.Player[0].Position; got != (Vector3{1, 2, 3}) {
		t.Fatalf("position lost: %v", got)
	}
}

func TestTickOutputTake(t *testing.T) {
	var output TickOutput
	output.RemovedEntityUUIDs.Player = []uuid.UUID{uuid.New()}

	first := output.Take()
	if first.Empty() {
		t.Fatal("first take must carry the accumulated output")
	}
	second := output.Take()
	if !second.Empty() {
		t.Fatalf("second take must be empty, got %+v", second)
	}
}
