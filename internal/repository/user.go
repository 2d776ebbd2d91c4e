package repository

import (
	"context"

	"github.com/jangdahyun/codingline/internal/domain"
)

// UserRepository stores account rows.
type UserRepository interface {
	// FindByUsername returns the user or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns the user or ErrUserNotFound.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save inserts or updates a user. Username/email collisions surface
	// as ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
