package repository

import (
	"context"

	"github.com/jangdahyun/codingline/internal/domain"
)

// RoomRepository stores Room rows. The ForUpdate variants take a row lock
// (SELECT ... FOR UPDATE) and are only meaningful inside a transaction; the
// plain variants are lock-free reads.
type RoomRepository interface {
	// FindByID returns the room or ErrRoomNotFound.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindBySlug returns the room with the given slug or ErrRoomNotFound.
	FindBySlug(ctx context.Context, slug string) (*domain.Room, error)

	// FindByIDForUpdate locks and returns the room row. Serializes
	// conflicting presence/ownership transitions for the room.
	FindByIDForUpdate(ctx context.Context, id uint) (*domain.Room, error)

	// FindBySlugForUpdate locks and returns the room row by slug.
	FindBySlugForUpdate(ctx context.Context, slug string) (*domain.Room, error)

	// Save inserts or updates a room. Slug collisions surface as
	// ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// Delete removes the room together with its memberships and messages
	// (cascading ownership of dependents).
	Delete(ctx context.Context, room *domain.Room) error

	// SlugExists reports whether any room already uses the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Search lists rooms newest first, optionally filtered by a substring
	// match over title and topic.
	Search(ctx context.Context, query string) ([]domain.Room, error)
}
