package domain

import "time"

// Membership roles. At most one membership per room holds RoleOwner, and
// that membership's UserID must equal the room's OwnerID.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// RoomMember is the durable (room, user) relationship. OpenConn counts the
// user's currently attached sessions in the room (multi-tab support) and is
// never negative; the row outlives individual connections and, when the
// member is banned, outlives the member's presence entirely so re-entry can
// be denied.
type RoomMember struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"uniqueIndex:uniq_room_user;index:idx_room_joined;index:idx_room_banned;index:idx_room_conn;not null"`
	UserID       uint      `gorm:"uniqueIndex:uniq_room_user;not null"`
	Role         string    `gorm:"type:varchar(10);not null;default:member"`
	IsBanned     bool      `gorm:"index:idx_room_banned;default:false"`
	OpenConn     uint      `gorm:"index:idx_room_conn;not null;default:0"`
	JoinedAt     time.Time `gorm:"autoCreateTime;index:idx_room_joined"`
	LastActiveAt time.Time `gorm:"index"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
