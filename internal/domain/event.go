package domain

import (
	"sync/atomic"
	"time"
)

// Event names broadcast through the fanout. Receivers branch on Name; the
// payload shape per name is documented next to the publishing site.
const (
	EventUserJoined   = "user_joined"
	EventUserLeft     = "user_left"
	EventOwnerChanged = "owner_changed"
	EventChat         = "chat"
	EventTyping       = "typing"
	EventImage        = "image"
	EventImageDeleted = "image_deleted"
	EventDraw         = "draw"
	EventDrawClear    = "draw_clear"
	EventDrawSnapshot = "draw_snapshot"
	EventRoomCreated  = "room_created"
	EventRoomUpdated  = "room_updated"
	EventRoomDeleted  = "room_deleted"
	EventRoomClosed   = "room_closed"
	EventKicked       = "kicked"
)

// Event is the envelope every fanout delivery carries. Version is a
// monotonically increasing wall-clock stamp: receivers may discard an event
// whose version is not newer than state they already hold, which makes
// duplicate and out-of-order delivery harmless.
type Event struct {
	Name    string                 `json:"event"`
	RoomID  uint                   `json:"room_id,omitempty"`
	Version int64                  `json:"version"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// lastVersion ratchets the stamp so that two events published within the
// same millisecond still compare as ordered.
var lastVersion atomic.Int64

// NextEventVersion returns a wall-clock-derived stamp that is strictly
// greater than any stamp previously returned by this process.
func NextEventVersion() int64 {
	now := time.Now().UnixMilli()
	for {
		last := lastVersion.Load()
		if now <= last {
			now = last + 1
		}
		if lastVersion.CompareAndSwap(last, now) {
			return now
		}
	}
}

// NewEvent builds a stamped event for a room group.
func NewEvent(name string, roomID uint, payload map[string]interface{}) Event {
	return Event{
		Name:    name,
		RoomID:  roomID,
		Version: NextEventVersion(),
		Payload: payload,
	}
}
