package repository

import (
	"context"

	"github.com/jangdahyun/codingline/internal/domain"
)

// MemberRepository stores RoomMember rows. Structural mutations (role
// changes, deletion) must go through rows obtained ForUpdate inside a
// transaction, otherwise concurrent joins and departures can double-count
// connections or elect two owners.
type MemberRepository interface {
	// Find returns the membership for (room, user) or ErrMemberNotFound.
	Find(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error)

	// FindForUpdate locks and returns the membership row.
	FindForUpdate(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error)

	// GetOrCreateForUpdate returns the locked membership, creating it with
	// the given role when absent. The second result reports creation.
	GetOrCreateForUpdate(ctx context.Context, roomID, userID uint, role string) (*domain.RoomMember, bool, error)

	// Save persists field changes on a membership row.
	Save(ctx context.Context, member *domain.RoomMember) error

	// Delete removes the membership row.
	Delete(ctx context.Context, member *domain.RoomMember) error

	// CountActive counts non-banned memberships with at least one open
	// connection. This is the number the capacity policy compares against.
	CountActive(ctx context.Context, roomID uint) (int64, error)

	// CountOwners counts memberships holding the owner role.
	CountOwners(ctx context.Context, roomID uint) (int64, error)

	// CountPresent counts non-banned membership rows regardless of open
	// connections. Members inside the departure grace window still count,
	// which is what keeps their room alive until they are finalized.
	CountPresent(ctx context.Context, roomID uint) (int64, error)

	// EarliestEligibleForUpdate locks and returns the successor candidate
	// for ownership transfer: the non-banned membership with the earliest
	// JoinedAt (ties broken by lowest ID), excluding the given user.
	// Returns ErrMemberNotFound when no candidate exists.
	EarliestEligibleForUpdate(ctx context.Context, roomID, excludeUserID uint) (*domain.RoomMember, error)
}
