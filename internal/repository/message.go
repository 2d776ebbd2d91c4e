package repository

import (
	"context"

	"github.com/jangdahyun/codingline/internal/domain"
)

// MessageRepository stores chat and image messages.
type MessageRepository interface {
	// Save inserts a message.
	Save(ctx context.Context, msg *domain.Message) error

	// FindInRoom returns the message with the given id scoped to the room,
	// or ErrMessageNotFound.
	FindInRoom(ctx context.Context, roomID, messageID uint) (*domain.Message, error)

	// ListPage returns one page of the room's messages, newest first,
	// together with the total row count for pagination.
	ListPage(ctx context.Context, roomID uint, offset, limit int) ([]domain.Message, int64, error)

	// Delete removes a message row.
	Delete(ctx context.Context, msg *domain.Message) error
}
