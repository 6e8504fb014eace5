//////////////////////////////////////////////////////////////////////////////
//
// Channel identity and immutable channel description
//
//////////////////////////////////////////////////////////////////////////////

package blackbox

import (
	"github.com/google/uuid"
)

// CameraPosition identifies where on the vehicle a camera is mounted.
type CameraPosition int

const (
	PositionFront CameraPosition = iota
	PositionRear
	PositionLeft
	PositionRight
	PositionInterior
)

func (p CameraPosition) String() string {
	switch p {
	case PositionFront:
		return "front"
	case PositionRear:
		return "rear"
	case PositionLeft:
		return "left"
	case PositionRight:
		return "right"
	case PositionInterior:
		return "interior"
	default:
		return "unknown"
	}
}

// ChannelIdentity is an opaque unique identifier for a channel. Two channels
// are the same channel iff their identities compare equal; the identity
// carries no other meaning.
type ChannelIdentity string

// NewChannelIdentity generates a fresh identity for channels whose caller
// does not supply one.
func NewChannelIdentity() ChannelIdentity {
	return ChannelIdentity(uuid.New().String())
}

// ChannelDescriptor describes one camera's recording. Set at construction,
// never mutated; it outlives the channel's decoder handle.
type ChannelDescriptor struct {
	Position CameraPosition
	Locator  string
	Label    string
}
