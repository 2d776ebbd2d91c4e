package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jangdahyun/codingline/internal/domain"
)

// MessageRepository is a mock of repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) FindInRoom(ctx context.Context, roomID, messageID uint) (*domain.Message, error) {
	args := m.Called(ctx, roomID, messageID)
	if msg := args.Get(0); msg != nil {
		return msg.(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MessageRepository) ListPage(ctx context.Context, roomID uint, offset, limit int) ([]domain.Message, int64, error) {
	args := m.Called(ctx, roomID, offset, limit)
	var messages []domain.Message
	if list := args.Get(0); list != nil {
		messages = list.([]domain.Message)
	}
	return messages, args.Get(1).(int64), args.Error(2)
}

func (m *MessageRepository) Delete(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
