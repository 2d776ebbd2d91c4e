package service_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jangdahyun/codingline/internal/domain"
)

// fakeBroadcaster records every published event in order so tests can
// assert on broadcast content and ordering.
type fakeBroadcaster struct {
	mu        sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	Group string
	Event domain.Event
}

func (f *fakeBroadcaster) Publish(_ context.Context, group string, event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{Group: group, Event: event})
}

func (f *fakeBroadcaster) events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.published...)
}

// names returns just the event names, in publish order.
func (f *fakeBroadcaster) names() []string {
	var names []string
	for _, p := range f.events() {
		names = append(names, p.Event.Name)
	}
	return names
}

// fakeScheduler records ScheduleFinalize calls.
type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledFinalize
	err   error
}

type scheduledFinalize struct {
	RoomID uint
	UserID uint
	Delay  time.Duration
}

func (f *fakeScheduler) ScheduleFinalize(_ context.Context, roomID, userID uint, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduledFinalize{RoomID: roomID, UserID: userID, Delay: delay})
	return f.err
}

func (f *fakeScheduler) scheduled() []scheduledFinalize {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledFinalize(nil), f.calls...)
}

// fakeDrawState records which rooms had their draw state dropped.
type fakeDrawState struct {
	mu      sync.Mutex
	dropped []uint
}

func (f *fakeDrawState) DropRoom(roomID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, roomID)
}

func (f *fakeDrawState) droppedRooms() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.dropped...)
}

// fakeImageStore stores nothing; it hands out predictable URLs and records
// removals.
type fakeImageStore struct {
	mu      sync.Mutex
	puts    int
	removed []string
	putErr  error
}

func (f *fakeImageStore) Put(_ context.Context, roomID uint, fileName string, reader io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	if reader != nil {
		_, _ = io.Copy(io.Discard, reader)
	}
	f.puts++
	return fmt.Sprintf("http://images.test/rooms/%d/%s", roomID, fileName), nil
}

func (f *fakeImageStore) Remove(_ context.Context, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, imageURL)
	return nil
}
