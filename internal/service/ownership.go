package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// transferOwnershipToEarliest moves the owner role from prev to the member
// who joined the room earliest (ties broken by row id). Both the room row
// and prev must already be locked by the caller's transaction; the
// successor is locked here. Returns the new owner's user id, or changed ==
// false when no eligible successor exists.
//
// prev keeps its demoted role written back only while it still holds
// connections; a row about to be finalized is left alone because the
// caller deletes it.
func transferOwnershipToEarliest(ctx context.Context, tx *repository.Tx, room *domain.Room, prev *domain.RoomMember) (changed bool, newOwnerID uint, err error) {
	successor, err := tx.Members.EarliestEligibleForUpdate(ctx, room.ID, prev.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}

	successor.Role = domain.RoleOwner
	if err := tx.Members.Save(ctx, successor); err != nil {
		return false, 0, err
	}

	room.OwnerID = successor.UserID
	if err := tx.Rooms.Save(ctx, room); err != nil {
		return false, 0, err
	}

	if prev.Role == domain.RoleOwner && prev.OpenConn > 0 {
		prev.Role = domain.RoleMember
		if err := tx.Members.Save(ctx, prev); err != nil {
			return false, 0, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"room_id":       room.ID,
		"prev_owner_id": prev.UserID,
		"new_owner_id":  successor.UserID,
	}).Info("Room ownership transferred")
	return true, successor.UserID, nil
}
