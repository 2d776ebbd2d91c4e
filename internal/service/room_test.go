package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
	"github.com/jangdahyun/codingline/internal/repository/mocks"
	"github.com/jangdahyun/codingline/internal/service"
)

func newRoomFixture() (*service.RoomService, *mocks.TxManager, *fakeBroadcaster, *fakeDrawState) {
	txm := mocks.NewTxManager()
	hub := &fakeBroadcaster{}
	draw := &fakeDrawState{}
	roomService := service.NewRoomService(txm, txm.Rooms, txm.Members, hub, draw, 20, 50)
	return roomService, txm, hub, draw
}

func TestRoomService_Create_Success(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()

	txm.Rooms.On("SlugExists", ctx, "sprint-planning").Return(false, nil).Once()
	txm.Rooms.On("Save", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		assert.Equal(t, "Sprint Planning", room.Title)
		assert.Equal(t, "sprint-planning", room.Slug)
		assert.Equal(t, uint(9), room.OwnerID)
		return true
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Room).ID = 42
		}).
		Return(nil).Once()
	txm.Members.On("GetOrCreateForUpdate", ctx, uint(42), uint(9), domain.RoleOwner).
		Return(&domain.RoomMember{RoomID: 42, UserID: 9, Role: domain.RoleOwner}, true, nil).Once()

	// Act
	room, err := roomService.Create(ctx, 9, service.CreateRoomInput{Title: "Sprint Planning"})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, uint(42), room.ID)
	assert.Equal(t, "general", room.Topic, "empty topic falls back to the default")
	assert.Equal(t, uint(20), room.Capacity, "zero capacity falls back to the default")

	events := hub.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.GroupLobby, events[0].Group)
	assert.Equal(t, domain.EventRoomCreated, events[0].Event.Name)
	assert.Equal(t, "sprint-planning", events[0].Event.Payload["slug"])

	// Verify
	txm.Rooms.AssertExpectations(t)
	txm.Members.AssertExpectations(t)
}

func TestRoomService_Create_SlugCollisionGetsSuffix(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()
	ctx := context.Background()

	txm.Rooms.On("SlugExists", ctx, "sprint-planning").Return(true, nil).Once()
	txm.Rooms.On("SlugExists", ctx, "sprint-planning-2").Return(false, nil).Once()
	txm.Rooms.On("Save", ctx, mock.AnythingOfType("*domain.Room")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Room).ID = 43
		}).
		Return(nil).Once()
	txm.Members.On("GetOrCreateForUpdate", ctx, uint(43), uint(9), domain.RoleOwner).
		Return(&domain.RoomMember{RoomID: 43, UserID: 9, Role: domain.RoleOwner}, true, nil).Once()

	// Act
	room, err := roomService.Create(ctx, 9, service.CreateRoomInput{Title: "Sprint Planning"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sprint-planning-2", room.Slug)

	// Verify
	txm.Rooms.AssertExpectations(t)
}

func TestRoomService_Create_EmptyTitle(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()

	// Act
	_, err := roomService.Create(context.Background(), 9, service.CreateRoomInput{Title: "   "})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))
	txm.Rooms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_Create_CapacityAboveLimit(t *testing.T) {
	// Arrange
	roomService, _, _, _ := newRoomFixture()

	// Act
	_, err := roomService.Create(context.Background(), 9, service.CreateRoomInput{Title: "Big Room", Capacity: 51})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))
}

func TestRoomService_Update_Success(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Title: "Old", Slug: "old", Capacity: 10, OwnerID: 9}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Rooms.On("Save", ctx, room).Return(nil).Once()

	newTitle := "New Title"
	newCapacity := uint(30)

	// Act
	updated, err := roomService.Update(ctx, 9, 7, service.UpdateRoomInput{Title: &newTitle, Capacity: &newCapacity})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, uint(30), updated.Capacity)
	assert.Equal(t, "old", updated.Slug, "slug is immutable")

	// The same event goes to the room and the lobby.
	require.Equal(t, []string{domain.EventRoomUpdated, domain.EventRoomUpdated}, hub.names())
	events := hub.events()
	assert.Equal(t, domain.RoomGroup(7), events[0].Group)
	assert.Equal(t, domain.GroupLobby, events[1].Group)

	// Verify
	txm.Rooms.AssertExpectations(t)
}

func TestRoomService_Update_ByAdmin(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Title: "Old", Slug: "old", Capacity: 10, OwnerID: 9}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Users.On("FindByID", ctx, uint(1)).Return(&domain.User{ID: 1, IsAdmin: true}, nil).Once()
	txm.Rooms.On("Save", ctx, room).Return(nil).Once()

	newTitle := "Moderated"

	// Act
	updated, err := roomService.Update(ctx, 1, 7, service.UpdateRoomInput{Title: &newTitle})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Moderated", updated.Title)
	require.Equal(t, []string{domain.EventRoomUpdated, domain.EventRoomUpdated}, hub.names())

	// Verify
	txm.Rooms.AssertExpectations(t)
	txm.Users.AssertExpectations(t)
}

func TestRoomService_Update_NotOwner(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Title: "Old", OwnerID: 9}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Users.On("FindByID", ctx, uint(3)).Return(&domain.User{ID: 3}, nil).Once()

	newTitle := "Hijacked"

	// Act
	_, err := roomService.Update(ctx, 3, 7, service.UpdateRoomInput{Title: &newTitle})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAuthorizationDenied))
	assert.Empty(t, hub.events())
	txm.Rooms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_Delete_ByAdmin(t *testing.T) {
	// Arrange
	roomService, txm, hub, draw := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Slug: "doomed", OwnerID: 9}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Users.On("FindByID", ctx, uint(1)).Return(&domain.User{ID: 1, IsAdmin: true}, nil).Once()
	txm.Rooms.On("Delete", ctx, room).Return(nil).Once()

	// Act
	err := roomService.Delete(ctx, 1, 7)

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{domain.EventRoomClosed, domain.EventRoomDeleted}, hub.names())
	assert.Equal(t, []uint{7}, draw.droppedRooms())

	// Verify
	txm.Rooms.AssertExpectations(t)
	txm.Users.AssertExpectations(t)
}

func TestRoomService_Kick_Success(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, OwnerID: 9}
	member := &domain.RoomMember{RoomID: 7, UserID: 3, Role: domain.RoleMember, OpenConn: 2}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Members.On("FindForUpdate", ctx, uint(7), uint(3)).Return(member, nil).Once()
	txm.Members.On("Save", ctx, member).Return(nil).Once()

	// Act
	err := roomService.Kick(ctx, 9, 7, 3)

	// Assert
	require.NoError(t, err)
	assert.True(t, member.IsBanned)
	assert.Equal(t, uint(0), member.OpenConn)

	// The target hears it first on its private group, then the room.
	require.Equal(t, []string{domain.EventKicked, domain.EventUserLeft}, hub.names())
	events := hub.events()
	assert.Equal(t, domain.RoomUserGroup(7, 3), events[0].Group)
	assert.Equal(t, domain.RoomGroup(7), events[1].Group)

	// Verify
	txm.Members.AssertExpectations(t)
}

func TestRoomService_Kick_Self(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()

	// Act
	err := roomService.Kick(context.Background(), 9, 7, 9)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))
	txm.Rooms.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
}

func TestRoomService_Kick_NotOwner(t *testing.T) {
	// Arrange
	roomService, txm, hub, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, OwnerID: 9}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()

	// Act
	err := roomService.Kick(ctx, 3, 7, 5)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAuthorizationDenied))
	assert.Empty(t, hub.events())
}

func TestRoomService_Unban_Success(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, OwnerID: 9}
	member := &domain.RoomMember{RoomID: 7, UserID: 3, Role: domain.RoleMember, IsBanned: true}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Members.On("FindForUpdate", ctx, uint(7), uint(3)).Return(member, nil).Once()
	txm.Members.On("Save", ctx, member).Return(nil).Once()

	// Act
	err := roomService.Unban(ctx, 9, 7, 3)

	// Assert
	require.NoError(t, err)
	assert.False(t, member.IsBanned)

	// Verify
	txm.Members.AssertExpectations(t)
}

func TestRoomService_Unban_NotBannedIsNoop(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, OwnerID: 9}
	member := &domain.RoomMember{RoomID: 7, UserID: 3, Role: domain.RoleMember}

	txm.Rooms.On("FindByIDForUpdate", ctx, uint(7)).Return(room, nil).Once()
	txm.Members.On("FindForUpdate", ctx, uint(7), uint(3)).Return(member, nil).Once()

	// Act
	err := roomService.Unban(ctx, 9, 7, 3)

	// Assert
	require.NoError(t, err)
	txm.Members.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_CanEnter_Banned(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Capacity: 10, OwnerID: 9}
	member := &domain.RoomMember{RoomID: 7, UserID: 3, IsBanned: true}

	txm.Rooms.On("FindByID", ctx, uint(7)).Return(room, nil).Once()
	txm.Members.On("Find", ctx, uint(7), uint(3)).Return(member, nil).Once()

	// Act
	admission, err := roomService.CanEnter(ctx, 7, 3)

	// Assert
	require.NoError(t, err)
	assert.False(t, admission.Allowed)
	assert.Equal(t, domain.AdmissionReasonBanned, admission.Reason)
}

func TestRoomService_CanEnter_Full(t *testing.T) {
	// Arrange
	roomService, txm, _, _ := newRoomFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 7, Capacity: 2, OwnerID: 9}

	txm.Rooms.On("FindByID", ctx, uint(7)).Return(room, nil).Once()
	txm.Members.On("Find", ctx, uint(7), uint(3)).Return(nil, repository.ErrMemberNotFound).Once()
	txm.Members.On("CountActive", ctx, uint(7)).Return(int64(2), nil).Once()

	// Act
	admission, err := roomService.CanEnter(ctx, 7, 3)

	// Assert
	require.NoError(t, err)
	assert.False(t, admission.Allowed)
	assert.Equal(t, domain.AdmissionReasonFull, admission.Reason)
}
