package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/service"
	"github.com/jangdahyun/codingline/internal/tasks"
)

// PresenceFinalizeHandler runs the grace-window departure check.
type PresenceFinalizeHandler struct {
	presence *service.PresenceService
}

// NewPresenceFinalizeHandler creates the handler.
func NewPresenceFinalizeHandler(presence *service.PresenceService) *PresenceFinalizeHandler {
	return &PresenceFinalizeHandler{presence: presence}
}

// ProcessTask implements asynq.Handler. The underlying service call is
// idempotent, so retries after transient database errors are safe.
func (h *PresenceFinalizeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.PresenceFinalizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal presence finalize payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"room_id":   payload.RoomID,
		"user_id":   payload.UserID,
	})
	logCtx.Debug("Processing presence finalize task...")

	if err := h.presence.FinalizeDeparture(ctx, payload.RoomID, payload.UserID); err != nil {
		logCtx.WithError(err).Error("Failed to finalize departure")
		return fmt.Errorf("failed to finalize departure (room %d, user %d): %w", payload.RoomID, payload.UserID, err)
	}
	return nil
}
