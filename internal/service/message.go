package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// MessagePageSize is the fixed page length for history queries, newest
// first.
const MessagePageSize = 50

// maxChatLength caps a single chat message.
const maxChatLength = 2000

// maxImageSize caps one uploaded image at 10 MiB.
const maxImageSize = 10 << 20

// MessageService persists chat history and image attachments and fans the
// resulting events out to the room.
type MessageService struct {
	rooms    repository.RoomRepository
	members  repository.MemberRepository
	messages repository.MessageRepository
	store    ImageStore
	hub      Broadcaster
}

// NewMessageService creates a MessageService.
func NewMessageService(rooms repository.RoomRepository, members repository.MemberRepository, messages repository.MessageRepository, store ImageStore, hub Broadcaster) *MessageService {
	if rooms == nil {
		panic("RoomRepository cannot be nil for MessageService")
	}
	if members == nil {
		panic("MemberRepository cannot be nil for MessageService")
	}
	if messages == nil {
		panic("MessageRepository cannot be nil for MessageService")
	}
	if store == nil {
		panic("ImageStore cannot be nil for MessageService")
	}
	if hub == nil {
		panic("Broadcaster cannot be nil for MessageService")
	}
	return &MessageService{
		rooms:    rooms,
		members:  members,
		messages: messages,
		store:    store,
		hub:      hub,
	}
}

// PostChat stores a chat message from an active member and broadcasts it.
func (s *MessageService) PostChat(ctx context.Context, roomID, userID uint, content string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if len(content) > maxChatLength {
		return nil, fmt.Errorf("%w: message too long", ErrValidation)
	}

	if err := s.requireActiveMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		RoomID:  roomID,
		UserID:  userID,
		Content: content,
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to save chat message")
		return nil, ErrInternalServer
	}

	s.hub.Publish(ctx, domain.RoomGroup(roomID),
		domain.NewEvent(domain.EventChat, roomID, map[string]interface{}{
			"message_id": msg.ID,
			"user_id":    userID,
			"content":    msg.Content,
			"created_at": msg.CreatedAt,
		}))
	return msg, nil
}

// ListMessages returns one page of room history, newest first. Page
// numbers start at 1.
func (s *MessageService) ListMessages(ctx context.Context, roomID, userID uint, page int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * MessagePageSize
	messages, total, err := s.messages.ListPage(ctx, roomID, offset, MessagePageSize)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list messages")
		return nil, 0, ErrInternalServer
	}
	return messages, total, nil
}

// ImageUpload is one file in an image upload request.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadImages stores the images and creates one image message per file.
// Each stored image is broadcast as it lands; a failure aborts the rest of
// the batch but already stored images stay.
func (s *MessageService) UploadImages(ctx context.Context, roomID, userID uint, uploads []ImageUpload) ([]*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "files": len(uploads)})

	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files supplied", ErrValidation)
	}
	for _, up := range uploads {
		if !strings.HasPrefix(up.ContentType, "image/") {
			return nil, fmt.Errorf("%w: '%s' is not an image", ErrValidation, up.FileName)
		}
		if up.Size <= 0 || up.Size > maxImageSize {
			return nil, fmt.Errorf("%w: '%s' exceeds the size limit", ErrValidation, up.FileName)
		}
	}

	if err := s.requireActiveMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	var saved []*domain.Message
	for _, up := range uploads {
		url, err := s.store.Put(ctx, roomID, up.FileName, up.Reader, up.Size, up.ContentType)
		if err != nil {
			logCtx.WithError(err).Error("Failed to store image")
			return saved, ErrInternalServer
		}

		msg := &domain.Message{
			RoomID:   roomID,
			UserID:   userID,
			ImageURL: url,
		}
		if err := s.messages.Save(ctx, msg); err != nil {
			logCtx.WithError(err).Error("Failed to save image message")
			return saved, ErrInternalServer
		}
		saved = append(saved, msg)

		s.hub.Publish(ctx, domain.RoomGroup(roomID),
			domain.NewEvent(domain.EventImage, roomID, map[string]interface{}{
				"message_id": msg.ID,
				"user_id":    userID,
				"image_url":  url,
				"created_at": msg.CreatedAt,
			}))
	}

	logCtx.Info("Images uploaded")
	return saved, nil
}

// DeleteImage removes an image message. Allowed for the uploader and the
// room owner; the blob is removed best effort after the row.
func (s *MessageService) DeleteImage(ctx context.Context, roomID, userID, messageID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "message_id": messageID})

	msg, err := s.messages.FindInRoom(ctx, roomID, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		logCtx.WithError(err).Error("Failed to load image message")
		return ErrInternalServer
	}
	if !msg.IsImage() {
		return fmt.Errorf("%w: message is not an image", ErrValidation)
	}

	if msg.UserID != userID {
		room, err := s.rooms.FindByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return ErrInternalServer
		}
		if room.OwnerID != userID {
			return ErrAuthorizationDenied
		}
	}

	if err := s.messages.Delete(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to delete image message")
		return ErrInternalServer
	}
	if err := s.store.Remove(ctx, msg.ImageURL); err != nil {
		// The row is gone; an orphaned blob is acceptable.
		logCtx.WithError(err).Warn("Failed to delete stored image blob")
	}

	s.hub.Publish(ctx, domain.RoomGroup(roomID),
		domain.NewEvent(domain.EventImageDeleted, roomID, map[string]interface{}{
			"message_id": messageID,
			"user_id":    msg.UserID,
		}))

	logCtx.Info("Image deleted")
	return nil
}

// requireMember checks that the user holds a non-banned membership.
func (s *MessageService) requireMember(ctx context.Context, roomID, userID uint) error {
	member, err := s.members.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return ErrAuthorizationDenied
		}
		return ErrInternalServer
	}
	if member.IsBanned {
		return ErrAuthorizationDenied
	}
	return nil
}

// requireActiveMember additionally requires at least one open connection.
func (s *MessageService) requireActiveMember(ctx context.Context, roomID, userID uint) error {
	member, err := s.members.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return ErrAuthorizationDenied
		}
		return ErrInternalServer
	}
	if member.IsBanned || member.OpenConn == 0 {
		return ErrAuthorizationDenied
	}
	return nil
}
