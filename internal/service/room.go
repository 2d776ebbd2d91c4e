package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// RoomService owns the room lifecycle: creation with slug allocation,
// metadata updates, deletion, and the moderation actions (kick, unban).
type RoomService struct {
	txm     repository.TxManager
	rooms   repository.RoomRepository
	members repository.MemberRepository
	hub     Broadcaster
	draw    DrawState

	defaultCapacity uint
	maxCapacity     uint
}

// NewRoomService creates a RoomService.
func NewRoomService(txm repository.TxManager, rooms repository.RoomRepository, members repository.MemberRepository, hub Broadcaster, draw DrawState, defaultCapacity, maxCapacity uint) *RoomService {
	if txm == nil {
		panic("TxManager cannot be nil for RoomService")
	}
	if rooms == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if members == nil {
		panic("MemberRepository cannot be nil for RoomService")
	}
	if hub == nil {
		panic("Broadcaster cannot be nil for RoomService")
	}
	if draw == nil {
		panic("DrawState cannot be nil for RoomService")
	}
	if defaultCapacity == 0 {
		defaultCapacity = 20
	}
	if maxCapacity == 0 {
		maxCapacity = defaultCapacity
	}
	return &RoomService{
		txm:             txm,
		rooms:           rooms,
		members:         members,
		hub:             hub,
		draw:            draw,
		defaultCapacity: defaultCapacity,
		maxCapacity:     maxCapacity,
	}
}

// CreateRoomInput carries the user-supplied room settings.
type CreateRoomInput struct {
	Title    string
	Topic    string
	Password string
	Capacity uint
}

// UpdateRoomInput carries partial room updates; nil fields stay untouched.
// The slug is immutable and cannot appear here.
type UpdateRoomInput struct {
	Title    *string
	Topic    *string
	Password *string
	Capacity *uint
}

// Create allocates a slug, persists the room and its owner membership, and
// announces the room to the lobby.
func (s *RoomService) Create(ctx context.Context, ownerID uint, in CreateRoomInput) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "title": in.Title})

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > 100 {
		return nil, fmt.Errorf("%w: title too long", ErrValidation)
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = "general"
	}
	capacity := in.Capacity
	if capacity == 0 {
		capacity = s.defaultCapacity
	}
	if capacity > s.maxCapacity {
		return nil, fmt.Errorf("%w: capacity above limit %d", ErrValidation, s.maxCapacity)
	}

	var room *domain.Room
	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		slug, err := uniqueSlug(ctx, tx.Rooms, slugify(title))
		if err != nil {
			return err
		}

		room = &domain.Room{
			Title:    title,
			Slug:     slug,
			Topic:    topic,
			Password: strings.TrimSpace(in.Password),
			Capacity: capacity,
			OwnerID:  ownerID,
		}
		if err := tx.Rooms.Save(ctx, room); err != nil {
			return err
		}

		// The creator's membership carries the owner role from the start,
		// so ownership transfer always has a well-defined previous owner.
		_, _, err = tx.Members.GetOrCreateForUpdate(ctx, room.ID, ownerID, domain.RoleOwner)
		if err != nil {
			return err
		}

		tx.AfterCommit(func() {
			s.hub.Publish(context.Background(), domain.GroupLobby,
				domain.NewEvent(domain.EventRoomCreated, room.ID, room.PublicFields()))
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Slug was taken between the existence check and the insert.
			logCtx.WithError(err).Warn("Room creation lost a slug race")
			return nil, ErrInternalServer
		}
		logCtx.WithError(err).Error("Failed to create room")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "slug": room.Slug}).Info("Room created")
	return room, nil
}

// Update applies metadata changes on the owner's (or an admin's) request
// and broadcasts the new shape to the room and the lobby.
func (s *RoomService) Update(ctx context.Context, actorID, roomID uint, in UpdateRoomInput) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "room_id": roomID})

	var room *domain.Room
	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		var err error
		room, err = tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if room.OwnerID != actorID {
			actor, err := tx.Users.FindByID(ctx, actorID)
			if err != nil || !actor.IsAdmin {
				return ErrAuthorizationDenied
			}
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" || len(title) > 100 {
				return fmt.Errorf("%w: invalid title", ErrValidation)
			}
			room.Title = title
		}
		if in.Topic != nil {
			room.Topic = strings.TrimSpace(*in.Topic)
		}
		if in.Password != nil {
			room.Password = strings.TrimSpace(*in.Password)
		}
		if in.Capacity != nil {
			if *in.Capacity == 0 || *in.Capacity > s.maxCapacity {
				return fmt.Errorf("%w: invalid capacity", ErrValidation)
			}
			room.Capacity = *in.Capacity
		}

		if err := tx.Rooms.Save(ctx, room); err != nil {
			return err
		}

		tx.AfterCommit(func() {
			event := domain.NewEvent(domain.EventRoomUpdated, room.ID, room.PublicFields())
			s.hub.Publish(context.Background(), domain.RoomGroup(room.ID), event)
			s.hub.Publish(context.Background(), domain.GroupLobby, event)
		})
		return nil
	})
	if err != nil {
		return nil, s.mapRoomError(logCtx, "Failed to update room", err)
	}

	logCtx.Info("Room updated")
	return room, nil
}

// Delete removes a room on the owner's (or an admin's) request. Connected
// clients receive room_closed before their sockets are shut down.
func (s *RoomService) Delete(ctx context.Context, actorID, roomID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "room_id": roomID})

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if room.OwnerID != actorID {
			actor, err := tx.Users.FindByID(ctx, actorID)
			if err != nil || !actor.IsAdmin {
				return ErrAuthorizationDenied
			}
		}
		if err := tx.Rooms.Delete(ctx, room); err != nil {
			return err
		}

		tx.AfterCommit(func() {
			s.hub.Publish(context.Background(), domain.RoomGroup(room.ID),
				domain.NewEvent(domain.EventRoomClosed, room.ID, nil))
			s.hub.Publish(context.Background(), domain.GroupLobby,
				domain.NewEvent(domain.EventRoomDeleted, room.ID, map[string]interface{}{"slug": room.Slug}))
			s.draw.DropRoom(room.ID)
		})
		return nil
	})
	if err != nil {
		return s.mapRoomError(logCtx, "Failed to delete room", err)
	}

	logCtx.Info("Room deleted")
	return nil
}

// FindByID loads a room for handlers.
func (s *RoomService) FindByID(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("FindByID: repository error")
		return nil, ErrInternalServer
	}
	return room, nil
}

// FindBySlug loads a room by its public identifier.
func (s *RoomService) FindBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	room, err := s.rooms.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("slug", slug).Error("FindBySlug: repository error")
		return nil, ErrInternalServer
	}
	return room, nil
}

// Search lists rooms, optionally filtered by a title/topic substring.
func (s *RoomService) Search(ctx context.Context, query string) ([]domain.Room, error) {
	rooms, err := s.rooms.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		logrus.WithError(err).WithField("query", query).Error("Search: repository error")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// Kick bans a member from the room. The membership row stays with the ban
// flag set so re-entry keeps being denied; the member's open connections
// are told first and then closed by the websocket layer.
func (s *RoomService) Kick(ctx context.Context, actorID, roomID, targetID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "room_id": roomID, "target_id": targetID})

	if actorID == targetID {
		return fmt.Errorf("%w: cannot kick yourself", ErrValidation)
	}

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if room.OwnerID != actorID {
			return ErrAuthorizationDenied
		}

		member, err := tx.Members.FindForUpdate(ctx, roomID, targetID)
		if err != nil {
			return err
		}
		member.IsBanned = true
		// Connections are force-closed right after the kicked event, so the
		// counter is zeroed here instead of draining one detach at a time.
		member.OpenConn = 0
		if err := tx.Members.Save(ctx, member); err != nil {
			return err
		}

		tx.AfterCommit(func() {
			s.hub.Publish(context.Background(), domain.RoomUserGroup(roomID, targetID),
				domain.NewEvent(domain.EventKicked, roomID, map[string]interface{}{"user_id": targetID}))
			s.hub.Publish(context.Background(), domain.RoomGroup(roomID),
				domain.NewEvent(domain.EventUserLeft, roomID, map[string]interface{}{"user_id": targetID}))
		})
		return nil
	})
	if err != nil {
		return s.mapRoomError(logCtx, "Failed to kick member", err)
	}

	logCtx.Info("Member kicked")
	return nil
}

// Unban lifts a ban so the user may enter again. Their presence state is
// not restored; they reconnect like any newcomer.
func (s *RoomService) Unban(ctx context.Context, actorID, roomID, targetID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "room_id": roomID, "target_id": targetID})

	err := s.txm.InTx(ctx, func(tx *repository.Tx) error {
		room, err := tx.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if room.OwnerID != actorID {
			return ErrAuthorizationDenied
		}

		member, err := tx.Members.FindForUpdate(ctx, roomID, targetID)
		if err != nil {
			return err
		}
		if !member.IsBanned {
			return nil
		}
		member.IsBanned = false
		return tx.Members.Save(ctx, member)
	})
	if err != nil {
		return s.mapRoomError(logCtx, "Failed to unban member", err)
	}

	logCtx.Info("Member unbanned")
	return nil
}

// CanEnter is the read-only admission pre-check for the join UI. The
// authoritative check runs again under lock when the connection attaches.
func (s *RoomService) CanEnter(ctx context.Context, roomID, userID uint) (domain.Admission, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return domain.Admission{}, ErrRoomNotFound
		}
		return domain.Admission{}, ErrInternalServer
	}

	member, err := s.members.Find(ctx, roomID, userID)
	if err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		return domain.Admission{}, ErrInternalServer
	}
	return admit(ctx, s.members, room, userID, member)
}

// admit evaluates the entry policy against a (possibly nil) membership.
// Ban beats everything; the owner bypasses capacity; a member who already
// holds a connection is re-admitted regardless of the head count.
func admit(ctx context.Context, members repository.MemberRepository, room *domain.Room, userID uint, member *domain.RoomMember) (domain.Admission, error) {
	if member != nil && member.IsBanned {
		return domain.Deny(domain.AdmissionReasonBanned), nil
	}
	if room.OwnerID == userID {
		return domain.Allow(), nil
	}
	if member != nil && member.OpenConn > 0 {
		return domain.Allow(), nil
	}

	active, err := members.CountActive(ctx, room.ID)
	if err != nil {
		return domain.Admission{}, err
	}
	if active >= int64(room.Capacity) {
		return domain.Deny(domain.AdmissionReasonFull), nil
	}
	return domain.Allow(), nil
}

// mapRoomError translates repository and policy errors into the service
// taxonomy, logging the unexpected ones.
func (s *RoomService) mapRoomError(logCtx *logrus.Entry, msg string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repository.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrAuthorizationDenied), errors.Is(err, ErrValidation):
		return err
	default:
		logCtx.WithError(err).Error(msg)
		return ErrInternalServer
	}
}
