package protocol

import "fmt"

// Protocol version spoken by this build. Peers whose major or minor
// component differs are rejected during the handshake.
const (
	VersionMajor = 0
	VersionMinor = 3
	VersionPatch = 1
)

// VersionData is exchanged in both handshake directions before any other
// message is accepted.
type VersionData struct {
	Code [3]uint16 `json:"version_code"`
	Name string    `json:"version_string"`
}

func CurrentVersion() VersionData {
	return VersionData{
		Code: [3]uint16{VersionMajor, VersionMinor, VersionPatch},
		Name: fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch),
	}
}

func (v VersionData) String() string {
	return fmt.Sprintf("%s (%d.%d.%d)", v.Name, v.Code[0], v.Code[1], v.Code[2])
}

// Compatible reports whether two peers can exchange messages. The patch
// component and the display string carry no compatibility meaning.
func (v VersionData) Compatible(other VersionData) bool {
	return v.Code[0] == other.Code[0] && v.Code[1] == other.Code[1]
}
