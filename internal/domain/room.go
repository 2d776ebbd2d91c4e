package domain

import (
	"strings"
	"time"
)

// Admission reasons returned by the can-enter policy. These are stable
// protocol values: the websocket layer sends them verbatim in close frames
// and the HTTP layer in error bodies.
const (
	AdmissionReasonBanned = "banned"
	AdmissionReasonFull   = "full"
)

// Admission is the reasoned outcome of an entry check. It is a result, not
// an error: a denied admission is a normal answer the caller must relay.
type Admission struct {
	Allowed bool
	Reason  string // empty when Allowed
}

// Allow and Deny are the two admission constructors.
func Allow() Admission             { return Admission{Allowed: true} }
func Deny(reason string) Admission { return Admission{Reason: reason} }

// Room is a named, capacity-bounded collaboration space with exactly one
// current owner (OwnerID). The slug is generated once from the title and is
// immutable afterwards; it is the public identifier used in URLs.
type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"type:varchar(100);not null"`
	Slug      string    `gorm:"type:varchar(120);uniqueIndex:idx_room_slug;not null"`
	Topic     string    `gorm:"type:varchar(50);default:general"`
	Password  string    `gorm:"type:varchar(128)"` // empty means no password required
	Capacity  uint      `gorm:"not null;default:20"`
	OwnerID   uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// RequiresPassword reports whether entry is gated on a password. This is
// independent of any visibility flag: a password set means a password asked.
func (r *Room) RequiresPassword() bool {
	return r.Password != ""
}

// CheckPassword validates a supplied room password. Rooms without a
// password accept anything.
func (r *Room) CheckPassword(raw string) bool {
	if r.Password == "" {
		return true
	}
	return r.Password == strings.TrimSpace(raw)
}

// PublicFields is the broadcast payload shape for room metadata events.
// Password itself never leaves the server, only the requires_password bit.
func (r *Room) PublicFields() map[string]interface{} {
	return map[string]interface{}{
		"room_id":           r.ID,
		"slug":              r.Slug,
		"title":             r.Title,
		"topic":             r.Topic,
		"capacity":          r.Capacity,
		"requires_password": r.RequiresPassword(),
	}
}
