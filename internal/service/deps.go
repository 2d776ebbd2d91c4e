package service

import (
	"context"
	"io"
	"time"

	"github.com/jangdahyun/codingline/internal/domain"
)

// Broadcaster delivers events to a fanout group. The hub implements it;
// services publish through this interface so broadcasts can be observed in
// tests without a Redis connection.
type Broadcaster interface {
	Publish(ctx context.Context, group string, event domain.Event)
}

// FinalizeScheduler enqueues the delayed departure check that runs once a
// member's grace window has elapsed.
type FinalizeScheduler interface {
	ScheduleFinalize(ctx context.Context, roomID, userID uint, delay time.Duration) error
}

// DrawState is the slice of the draw cache the room lifecycle needs: when a
// room closes its strokes are discarded with it.
type DrawState interface {
	DropRoom(roomID uint)
}

// ImageStore is the object storage for chat image uploads.
type ImageStore interface {
	// Put stores the image under a fresh object key inside the room's
	// prefix and returns the public URL of the stored object.
	Put(ctx context.Context, roomID uint, fileName string, reader io.Reader, size int64, contentType string) (string, error)
	// Remove deletes the object addressed by a URL previously returned
	// from Put. URLs pointing outside the bucket are rejected.
	Remove(ctx context.Context, imageURL string) error
}
