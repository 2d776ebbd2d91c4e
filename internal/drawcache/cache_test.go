package drawcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/drawcache"
)

func fragment(artifact, path string, points ...domain.Point) domain.StrokeFragment {
	return domain.StrokeFragment{
		ArtifactID: artifact,
		PathID:     path,
		Color:      "#000000",
		Width:      2,
		Mode:       "draw",
		Points:     points,
	}
}

func TestCache_AppendFragment_ExtendsSamePath(t *testing.T) {
	// Arrange
	cache := drawcache.New()

	// Act: two fragments of one continuous path.
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 0, Y: 0}, domain.Point{X: 1, Y: 1}))
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 2, Y: 2}))

	// Assert
	snapshot := cache.Snapshot(1)
	require.Len(t, snapshot["board"], 1, "fragments of one path merge into one stroke")
	assert.Len(t, snapshot["board"][0].Points, 3)
}

func TestCache_AppendFragment_NewPathStartsNewStroke(t *testing.T) {
	// Arrange
	cache := drawcache.New()

	// Act
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 0, Y: 0}))
	cache.AppendFragment(1, fragment("board", "p2", domain.Point{X: 5, Y: 5}))

	// Assert
	snapshot := cache.Snapshot(1)
	require.Len(t, snapshot["board"], 2)
	assert.Equal(t, "p1", snapshot["board"][0].PathID)
	assert.Equal(t, "p2", snapshot["board"][1].PathID)
}

func TestCache_Snapshot_IsIsolated(t *testing.T) {
	// Arrange
	cache := drawcache.New()
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 0, Y: 0}))

	// Act
	snapshot := cache.Snapshot(1)
	snapshot["board"][0].Points[0].X = 99
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 1, Y: 1}))

	// Assert: mutating the snapshot does not reach the cache, and drawing
	// after the snapshot does not reach the snapshot.
	fresh := cache.Snapshot(1)
	assert.Equal(t, float64(0), fresh["board"][0].Points[0].X)
	assert.Len(t, snapshot["board"][0].Points, 1)
}

func TestCache_Snapshot_UnknownRoomIsEmpty(t *testing.T) {
	cache := drawcache.New()
	assert.Empty(t, cache.Snapshot(42))
}

func TestCache_Clear_WipesOneArtifact(t *testing.T) {
	// Arrange
	cache := drawcache.New()
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 0, Y: 0}))
	cache.AppendFragment(1, fragment("notes", "p2", domain.Point{X: 1, Y: 1}))

	// Act
	cache.Clear(1, "board")

	// Assert
	snapshot := cache.Snapshot(1)
	assert.NotContains(t, snapshot, "board")
	assert.Contains(t, snapshot, "notes")
}

func TestCache_DropRoom(t *testing.T) {
	// Arrange
	cache := drawcache.New()
	cache.AppendFragment(1, fragment("board", "p1", domain.Point{X: 0, Y: 0}))
	cache.AppendFragment(2, fragment("board", "p1", domain.Point{X: 0, Y: 0}))

	// Act
	cache.DropRoom(1)

	// Assert
	assert.Empty(t, cache.Snapshot(1))
	assert.Len(t, cache.Snapshot(2)["board"], 1, "other rooms are untouched")
}
