package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jangdahyun/codingline/internal/domain"
)

// RoomRepository is a mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if room := args.Get(0); room != nil {
		return room.(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	args := m.Called(ctx, slug)
	if room := args.Get(0); room != nil {
		return room.(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if room := args.Get(0); room != nil {
		return room.(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindBySlugForUpdate(ctx context.Context, slug string) (*domain.Room, error) {
	args := m.Called(ctx, slug)
	if room := args.Get(0); room != nil {
		return room.(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) Delete(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepository) Search(ctx context.Context, query string) ([]domain.Room, error) {
	args := m.Called(ctx, query)
	if rooms := args.Get(0); rooms != nil {
		return rooms.([]domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}
