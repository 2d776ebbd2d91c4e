package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jangdahyun/codingline/internal/domain"
)

// MemberRepository is a mock of repository.MemberRepository.
type MemberRepository struct {
	mock.Mock
}

func (m *MemberRepository) Find(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error) {
	args := m.Called(ctx, roomID, userID)
	if member := args.Get(0); member != nil {
		return member.(*domain.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MemberRepository) FindForUpdate(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error) {
	args := m.Called(ctx, roomID, userID)
	if member := args.Get(0); member != nil {
		return member.(*domain.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MemberRepository) GetOrCreateForUpdate(ctx context.Context, roomID, userID uint, role string) (*domain.RoomMember, bool, error) {
	args := m.Called(ctx, roomID, userID, role)
	if member := args.Get(0); member != nil {
		return member.(*domain.RoomMember), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MemberRepository) Save(ctx context.Context, member *domain.RoomMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MemberRepository) Delete(ctx context.Context, member *domain.RoomMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MemberRepository) CountActive(ctx context.Context, roomID uint) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MemberRepository) CountOwners(ctx context.Context, roomID uint) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MemberRepository) CountPresent(ctx context.Context, roomID uint) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MemberRepository) EarliestEligibleForUpdate(ctx context.Context, roomID, excludeUserID uint) (*domain.RoomMember, error) {
	args := m.Called(ctx, roomID, excludeUserID)
	if member := args.Get(0); member != nil {
		return member.(*domain.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}
