// Package tasks defines the asynq task types and payloads.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	// TypePresenceFinalize is the delayed departure check scheduled when a
	// member's last connection closes.
	TypePresenceFinalize = "presence:finalize"
)

// PresenceFinalizePayload identifies the membership to re-check.
type PresenceFinalizePayload struct {
	RoomID uint `json:"room_id"`
	UserID uint `json:"user_id"`
}

// NewPresenceFinalizeTask serializes the payload for a finalize task.
func NewPresenceFinalizeTask(roomID, userID uint) ([]byte, error) {
	return json.Marshal(PresenceFinalizePayload{RoomID: roomID, UserID: userID})
}

// Scheduler enqueues delayed tasks through the asynq client. It is the
// FinalizeScheduler the presence service uses.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler creates a Scheduler.
func NewScheduler(client *asynq.Client) *Scheduler {
	if client == nil {
		panic("Asynq client cannot be nil for Scheduler")
	}
	return &Scheduler{client: client}
}

// ScheduleFinalize enqueues a presence:finalize task to run after delay.
// Presence correctness depends on the check running, so it goes on the
// critical queue.
func (s *Scheduler) ScheduleFinalize(ctx context.Context, roomID, userID uint, delay time.Duration) error {
	payload, err := NewPresenceFinalizeTask(roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to marshal finalize payload: %w", err)
	}
	task := asynq.NewTask(TypePresenceFinalize, payload)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue finalize task: %w", err)
	}
	return nil
}
