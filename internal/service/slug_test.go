package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jangdahyun/codingline/internal/repository/mocks"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Sprint Planning", "sprint-planning"},
		{"punctuation collapses", "Go / Rust -- which??", "go-rust-which"},
		{"leading and trailing junk", "  ***Standup***  ", "standup"},
		{"digits survive", "Room 101", "room-101"},
		{"non ascii dropped", "Café №42", "caf-42"},
		{"nothing usable", "!!! ---", "room"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, slugify(tc.title))
		})
	}
}

func TestUniqueSlug_BaseFree(t *testing.T) {
	// Arrange
	mockRooms := new(mocks.RoomRepository)
	ctx := context.Background()
	mockRooms.On("SlugExists", ctx, "standup").Return(false, nil).Once()

	// Act
	slug, err := uniqueSlug(ctx, mockRooms, "standup")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "standup", slug)
	mockRooms.AssertExpectations(t)
}

func TestUniqueSlug_SuffixesUntilFree(t *testing.T) {
	// Arrange
	mockRooms := new(mocks.RoomRepository)
	ctx := context.Background()
	mockRooms.On("SlugExists", ctx, "standup").Return(true, nil).Once()
	mockRooms.On("SlugExists", ctx, "standup-2").Return(true, nil).Once()
	mockRooms.On("SlugExists", ctx, "standup-3").Return(false, nil).Once()

	// Act
	slug, err := uniqueSlug(ctx, mockRooms, "standup")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "standup-3", slug)
	mockRooms.AssertExpectations(t)
}

func TestUniqueSlug_GivesUpEventually(t *testing.T) {
	// Arrange
	mockRooms := new(mocks.RoomRepository)
	ctx := context.Background()
	mockRooms.On("SlugExists", ctx, mock.Anything).Return(true, nil)

	// Act
	_, err := uniqueSlug(ctx, mockRooms, "standup")

	// Assert
	require.Error(t, err)
}
