// Package drawcache keeps the ephemeral per-room whiteboard state.
//
// Strokes live only in memory: a reconnecting client receives the current
// snapshot, and everything is gone once the room closes or the process
// restarts. Persistence of drawings is deliberately out of scope.
package drawcache

import (
	"sync"

	"github.com/jangdahyun/codingline/internal/domain"
)

// Cache accumulates stroke fragments per artifact and serves snapshots.
//
// Fragments for the same path are appended to one stroke so late joiners
// replay a compact list instead of every wire message.
type Cache struct {
	mu    sync.RWMutex
	rooms map[uint]map[string][]domain.Stroke
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{rooms: make(map[uint]map[string][]domain.Stroke)}
}

// AppendFragment merges a fragment into the room's artifact. Points are
// appended to the last stroke when the path id matches, otherwise a new
// stroke is started.
func (c *Cache) AppendFragment(roomID uint, frag domain.StrokeFragment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts, ok := c.rooms[roomID]
	if !ok {
		artifacts = make(map[string][]domain.Stroke)
		c.rooms[roomID] = artifacts
	}

	strokes := artifacts[frag.ArtifactID]
	if n := len(strokes); n > 0 && strokes[n-1].PathID == frag.PathID {
		strokes[n-1].Points = append(strokes[n-1].Points, frag.Points...)
		artifacts[frag.ArtifactID] = strokes
		return
	}

	artifacts[frag.ArtifactID] = append(strokes, domain.Stroke{
		PathID: frag.PathID,
		Color:  frag.Color,
		Width:  frag.Width,
		Mode:   frag.Mode,
		Points: append([]domain.Point(nil), frag.Points...),
	})
}

// Clear wipes a single artifact in the room.
func (c *Cache) Clear(roomID uint, artifactID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if artifacts, ok := c.rooms[roomID]; ok {
		delete(artifacts, artifactID)
	}
}

// Snapshot returns a deep copy of the room's artifacts, safe to serialize
// while other connections keep drawing.
func (c *Cache) Snapshot(roomID uint) map[string][]domain.Stroke {
	c.mu.RLock()
	defer c.mu.RUnlock()

	artifacts, ok := c.rooms[roomID]
	if !ok {
		return map[string][]domain.Stroke{}
	}

	snapshot := make(map[string][]domain.Stroke, len(artifacts))
	for artifactID, strokes := range artifacts {
		copied := make([]domain.Stroke, len(strokes))
		for i, stroke := range strokes {
			copied[i] = stroke
			copied[i].Points = append([]domain.Point(nil), stroke.Points...)
		}
		snapshot[artifactID] = copied
	}
	return snapshot
}

// DropRoom discards everything cached for the room. Called when the room
// closes.
func (c *Cache) DropRoom(roomID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}
