package domain

import "time"

// Message is a chat entry in a room: text, an uploaded image, or both.
// Rows cascade away with their room.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index:idx_room_created;not null"`
	UserID    uint      `gorm:"index;not null"`
	Content   string    `gorm:"type:text"`
	ImageURL  string    `gorm:"type:varchar(512)"` // object URL in the blob store, empty for text-only
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_room_created"`
}

// IsImage reports whether the message carries an uploaded image.
func (m *Message) IsImage() bool {
	return m.ImageURL != ""
}
