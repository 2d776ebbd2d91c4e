package domain

import "fmt"

// GroupLobby receives room directory events (created/updated/deleted) for
// clients watching the room list.
const GroupLobby = "lobby"

// RoomGroup is the fanout group every connection in a room belongs to.
func RoomGroup(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

// RoomUserGroup addresses all connections of one user inside one room,
// used for targeted events such as kicks.
func RoomUserGroup(roomID, userID uint) string {
	return fmt.Sprintf("room:%d:user:%d", roomID, userID)
}
