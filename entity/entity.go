package entity

import (
	"openstage/protocol"

	"github.com/google/uuid"
)

// Entity is the capability set shared by every kind. Kinds additionally
// carry a ProcessOutput method for their own delta type; that method is the
// only mutation path, on the server and on client mirrors alike, so both
// sides apply identical semantics.
type Entity interface {
	Base() *protocol.BaseEntityData
	ID() uuid.UUID
	Position() protocol.Vector3
}
