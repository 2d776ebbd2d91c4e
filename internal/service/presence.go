package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// errAdmissionDenied aborts the attach transaction when the entry policy
// says no, so a denied attach leaves no membership row behind.
var errAdmissionDenied = errors.New("admission denied")

// PresenceService tracks who is in which room by counting open
// connections per membership. Departure is detected with a grace window:
// the last connection closing schedules a delayed finalize instead of
// tearing presence down immediately, so refreshes and brief network blips
// do not churn membership, ownership or broadcasts.
type PresenceService struct {
	txm       repository.TxManager
	members   repository.MemberRepository
	hub       Broadcaster
	scheduler FinalizeScheduler
	draw      DrawState
	grace     time.Duration
}

// NewPresenceService creates a PresenceService. grace falls back to 10
// seconds when not positive.
func NewPresenceService(txm repository.TxManager, members repository.MemberRepository, hub Broadcaster, scheduler FinalizeScheduler, draw DrawState, grace time.Duration) *PresenceService {
	if txm == nil {
		panic("TxManager cannot be nil for PresenceService")
	}
	if members == nil {
		panic("MemberRepository cannot be nil for PresenceService")
	}
	if hub == nil {
		panic("Broadcaster cannot be nil for PresenceService")
	}
	if scheduler == nil {
		panic("FinalizeScheduler cannot be nil for PresenceService")
	}
	if draw == nil {
		panic("DrawState cannot be nil for PresenceService")
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &PresenceService{
		txm:       txm,
		members:   members,
		hub:       hub,
		scheduler: scheduler,
		draw:      draw,
		grace:     grace,
	}
}

// Grace exposes the configured departure window.
func (s *PresenceService) Grace() time.Duration {
	return s.grace
}

// Attach registers one new connection of the user in the room. The entry
// policy runs under the room lock; on a denial the transaction is rolled
// back and the admission carries the reason. user_joined is broadcast only
// on the 0 to 1 connection transition.
func (s *PresenceService) Attach(ctx context.Context, roomID, userID uint, password string) (domain.Admission, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	var admission domain.Admission
	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}

		if room.OwnerID != userID && !room.CheckPassword(password) {
			return ErrAuthorizationDenied
		}

		role := domain.RoleMember
		if room.OwnerID == userID {
			role = domain.RoleOwner
		}
		member, _, err := tx.Members.GetOrCreateForUpdate(ctx, roomID, userID, role)
		if err != nil {
			return err
		}
		if room.OwnerID == userID && member.Role != domain.RoleOwner {
			// The room's owner reference wins over a stale row role.
			member.Role = domain.RoleOwner
		}

		admission, err = admit(ctx, tx.Members, room, userID, member)
		if err != nil {
			return err
		}
		if !admission.Allowed {
			return errAdmissionDenied
		}

		member.OpenConn++
		member.LastActiveAt = time.Now()
		if err := tx.Members.Save(ctx, member); err != nil {
			return err
		}

		if member.OpenConn == 1 {
			tx.AfterCommit(func() {
				s.hub.Publish(context.Background(), domain.RoomGroup(roomID),
					domain.NewEvent(domain.EventUserJoined, roomID, map[string]interface{}{
						"user_id": userID,
						"role":    member.Role,
					}))
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAdmissionDenied) {
			logCtx.WithField("reason", admission.Reason).Info("Attach denied")
			return admission, nil
		}
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			return domain.Admission{}, ErrRoomNotFound
		case errors.Is(err, ErrAuthorizationDenied):
			return domain.Admission{}, ErrAuthorizationDenied
		default:
			logCtx.WithError(err).Error("Failed to attach connection")
			return domain.Admission{}, ErrInternalServer
		}
	}

	logCtx.Debug("Connection attached")
	return domain.Allow(), nil
}

// Detach unregisters one connection. When the counter reaches zero the
// departure is not final yet: a finalize task is scheduled to run after
// the grace window, and reconnecting in the meantime makes it a no-op.
func (s *PresenceService) Detach(ctx context.Context, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		member, err := tx.Members.FindForUpdate(ctx, roomID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				// Already finalized or kicked; nothing left to count down.
				return nil
			}
			return err
		}

		if member.OpenConn > 0 {
			member.OpenConn--
			if err := tx.Members.Save(ctx, member); err != nil {
				return err
			}
		}

		if member.OpenConn == 0 && !member.IsBanned {
			tx.AfterCommit(func() {
				if err := s.scheduler.ScheduleFinalize(context.Background(), roomID, userID, s.grace); err != nil {
					logCtx.WithError(err).Error("Failed to schedule departure finalize")
				}
			})
		}
		return nil
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to detach connection")
		return ErrInternalServer
	}
	return nil
}

// Leave is the explicit exit: every connection of the user is dropped and
// the departure is finalized immediately, skipping the grace window.
func (s *PresenceService) Leave(ctx context.Context, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return nil
			}
			return err
		}
		member, err := tx.Members.FindForUpdate(ctx, roomID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil
			}
			return err
		}

		if member.IsBanned {
			// The ban outlives the exit: the row must survive so re-entry
			// keeps being denied. Only the counter is forced down.
			if member.OpenConn != 0 {
				member.OpenConn = 0
				return tx.Members.Save(ctx, member)
			}
			return nil
		}

		member.OpenConn = 0
		return s.finalize(ctx, tx, room, member)
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to process leave")
		return ErrInternalServer
	}

	logCtx.Info("Member left room")
	return nil
}

// FinalizeDeparture is the delayed check behind the grace window. It
// re-reads presence under lock and does nothing when the member came back,
// the member was banned, or the room is already gone.
func (s *PresenceService) FinalizeDeparture(ctx context.Context, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return nil
			}
			return err
		}
		member, err := tx.Members.FindForUpdate(ctx, roomID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil
			}
			return err
		}

		if member.OpenConn > 0 {
			logCtx.Debug("Departure finalize skipped: member reconnected")
			return nil
		}
		if member.IsBanned {
			// The ban keeps the row; the kick already broadcast the exit.
			return nil
		}
		return s.finalize(ctx, tx, room, member)
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to finalize departure")
		return ErrInternalServer
	}
	return nil
}

// finalize completes a departure inside the caller's transaction: transfer
// ownership off a departing owner, delete the membership row, and close
// the room once no non-banned membership and no owner row remains.
// Broadcast hooks are registered in the order receivers must observe:
// owner_changed, then user_left, then room_closed.
func (s *PresenceService) finalize(ctx context.Context, tx *repository.Tx, room *domain.Room, member *domain.RoomMember) error {
	roomID := room.ID
	userID := member.UserID

	if member.Role == domain.RoleOwner {
		changed, newOwnerID, err := transferOwnershipToEarliest(ctx, tx, room, member)
		if err != nil {
			return err
		}
		if changed {
			tx.AfterCommit(func() {
				s.hub.Publish(context.Background(), domain.RoomGroup(roomID),
					domain.NewEvent(domain.EventOwnerChanged, roomID, map[string]interface{}{
						"prev_owner_id": userID,
						"new_owner_id":  newOwnerID,
					}))
			})
		}
	}

	if err := tx.Members.Delete(ctx, member); err != nil {
		return err
	}
	tx.AfterCommit(func() {
		s.hub.Publish(context.Background(), domain.RoomGroup(roomID),
			domain.NewEvent(domain.EventUserLeft, roomID, map[string]interface{}{"user_id": userID}))
	})

	remaining, err := tx.Members.CountPresent(ctx, roomID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		owners, err := tx.Members.CountOwners(ctx, roomID)
		if err != nil {
			return err
		}
		if owners > 0 {
			return nil
		}
		if err := tx.Rooms.Delete(ctx, room); err != nil {
			return err
		}
		tx.AfterCommit(func() {
			s.hub.Publish(context.Background(), domain.RoomGroup(roomID),
				domain.NewEvent(domain.EventRoomClosed, roomID, nil))
			s.hub.Publish(context.Background(), domain.GroupLobby,
				domain.NewEvent(domain.EventRoomDeleted, roomID, map[string]interface{}{"slug": room.Slug}))
			s.draw.DropRoom(roomID)
		})
		logrus.WithField("room_id", roomID).Info("Room closed: last member departed")
	}
	return nil
}

// Touch refreshes the member's activity timestamp. Called on a sampled
// subset of inbound frames, never on a hot path per message.
func (s *PresenceService) Touch(ctx context.Context, roomID, userID uint) {
	member, err := s.members.Find(ctx, roomID, userID)
	if err != nil {
		return
	}
	member.LastActiveAt = time.Now()
	if err := s.members.Save(ctx, member); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).
			Warn("Failed to update member activity")
	}
}
