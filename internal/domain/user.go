// Package domain defines the persistent entities and the wire-level value
// types shared by every layer of the room server.
package domain

import "time"

// User is an authenticated account. Presence, membership and ownership all
// hang off User.ID; the account fields themselves are deliberately minimal.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"` // bcrypt hash, never the raw password
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	IsAdmin   bool      `gorm:"default:false"` // administrative actor: may mutate any room
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
