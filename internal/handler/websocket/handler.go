// Package websocket upgrades connections and speaks the room protocol.
//
// Inbound frames are JSON objects with an "action" field (chat, typing,
// draw, draw_clear, leave). Outbound frames are the fanout events; entry
// failures are reported through close codes: 4001 unauthenticated, 4404
// room not found, 4403 forbidden (banned, full, wrong password).
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/drawcache"
	"github.com/jangdahyun/codingline/internal/hub"
	"github.com/jangdahyun/codingline/internal/middleware"
	"github.com/jangdahyun/codingline/internal/service"
)

// touchSampleRate controls how often inbound frames refresh the member's
// activity timestamp: one write per this many frames.
const touchSampleRate = 50

// WebSocketHandler owns the upgrade path and the inbound action dispatch.
type WebSocketHandler struct {
	upgrader        websocket.Upgrader
	hub             *hub.Hub
	presenceService *service.PresenceService
	messageService  *service.MessageService
	drawCache       *drawcache.Cache
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub, presence *service.PresenceService, messages *service.MessageService, draw *drawcache.Cache) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if presence == nil {
		panic("PresenceService cannot be nil for WebSocketHandler")
	}
	if messages == nil {
		panic("MessageService cannot be nil for WebSocketHandler")
	}
	if draw == nil {
		panic("Draw cache cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin filtering happens at the proxy in deployment.
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:        upgrader,
		hub:             h,
		presenceService: presence,
		messageService:  messages,
		drawCache:       draw,
	}
}

// HandleRoom serves GET /ws/rooms/:roomId. The connection is upgraded
// first so entry failures can be reported with websocket close codes; the
// authoritative admission check runs inside Attach.
func (h *WebSocketHandler) HandleRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.rejectUnauthenticated(c)
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	roomID64, err := strconv.ParseUint(c.Param("roomId"), 10, 32)
	if err != nil || roomID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}
	roomID := uint(roomID64)
	logCtx = logCtx.WithField("room_id", roomID)

	password := c.Query("password")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	admission, err := h.presenceService.Attach(c.Request.Context(), roomID, userID, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			closeWith(conn, hub.CloseNotFound, "room not found")
		case errors.Is(err, service.ErrAuthorizationDenied):
			closeWith(conn, hub.CloseForbidden, "invalid password")
		default:
			logCtx.WithError(err).Error("WS Handler: attach failed")
			closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		}
		return
	}
	if !admission.Allowed {
		logCtx.WithField("reason", admission.Reason).Info("WS Handler: admission denied")
		closeWith(conn, hub.CloseForbidden, admission.Reason)
		return
	}

	session := &roomSession{handler: h, roomID: roomID, userID: userID}
	groups := []string{domain.RoomGroup(roomID), domain.RoomUserGroup(roomID, userID)}
	client := hub.NewClient(h.hub, conn, roomID, userID, groups,
		session.handleFrame,
		func() {
			// Presence must be released even when attach's caller is long
			// gone, hence the background context.
			if err := h.presenceService.Detach(context.Background(), roomID, userID); err != nil {
				logCtx.WithError(err).Error("WS Handler: detach failed")
			}
		},
	)
	session.client = client
	client.Run()

	h.sendDrawSnapshot(client, roomID)
	logCtx.Debug("WS Handler: room session established")
}

// HandleLobby serves GET /ws/lobby: a read-only feed of room directory
// events. No presence is tracked and inbound frames are ignored.
func (h *WebSocketHandler) HandleLobby(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.rejectUnauthenticated(c)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("WS Handler: failed to upgrade lobby connection")
		return
	}

	client := hub.NewClient(h.hub, conn, 0, userID, []string{domain.GroupLobby}, nil, nil)
	client.Run()
}

// rejectUnauthenticated upgrades the connection just to deliver the 4001
// close code; an HTTP 401 before the handshake would be invisible to
// browser websocket clients.
func (h *WebSocketHandler) rejectUnauthenticated(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("WS Handler: failed to upgrade unauthenticated connection")
		return
	}
	closeWith(conn, hub.CloseUnauthorized, "authentication required")
}

// sendDrawSnapshot pushes the room's current whiteboard state to a newly
// attached client, before any live draw events reach it.
func (h *WebSocketHandler) sendDrawSnapshot(client *hub.Client, roomID uint) {
	snapshot := h.drawCache.Snapshot(roomID)
	event := domain.NewEvent(domain.EventDrawSnapshot, roomID, map[string]interface{}{
		"artifacts": snapshot,
	})
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("WS Handler: failed to marshal draw snapshot")
		return
	}
	client.Send(payload)
}

// inboundFrame is the envelope of every client-to-server frame.
type inboundFrame struct {
	Action     string         `json:"action"`
	Content    string         `json:"content,omitempty"`
	ArtifactID string         `json:"artifact_id,omitempty"`
	PathID     string         `json:"path_id,omitempty"`
	Color      string         `json:"color,omitempty"`
	Width      float64        `json:"width,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	Points     []domain.Point `json:"points,omitempty"`
}

// roomSession is the per-connection dispatch state.
type roomSession struct {
	handler *WebSocketHandler
	client  *hub.Client
	roomID  uint
	userID  uint
	frames  atomic.Uint64
}

// handleFrame runs on the read pump goroutine.
func (s *roomSession) handleFrame(data []byte) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": s.roomID, "user_id": s.userID})

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		logCtx.WithError(err).Debug("Dropping malformed frame")
		return
	}

	if n := s.frames.Add(1); n%touchSampleRate == 1 {
		s.handler.presenceService.Touch(context.Background(), s.roomID, s.userID)
	}

	ctx := context.Background()
	switch frame.Action {
	case "chat":
		if _, err := s.handler.messageService.PostChat(ctx, s.roomID, s.userID, frame.Content); err != nil {
			logCtx.WithError(err).Debug("Chat frame rejected")
		}

	case "typing":
		s.handler.hub.Publish(ctx, domain.RoomGroup(s.roomID),
			domain.NewEvent(domain.EventTyping, s.roomID, map[string]interface{}{"user_id": s.userID}))

	case "draw":
		if frame.ArtifactID == "" || frame.PathID == "" || len(frame.Points) == 0 {
			return
		}
		fragment := domain.StrokeFragment{
			ArtifactID: frame.ArtifactID,
			PathID:     frame.PathID,
			Color:      frame.Color,
			Width:      frame.Width,
			Mode:       frame.Mode,
			Points:     frame.Points,
		}
		s.handler.drawCache.AppendFragment(s.roomID, fragment)
		s.handler.hub.Publish(ctx, domain.RoomGroup(s.roomID),
			domain.NewEvent(domain.EventDraw, s.roomID, map[string]interface{}{
				"user_id":     s.userID,
				"artifact_id": fragment.ArtifactID,
				"path_id":     fragment.PathID,
				"color":       fragment.Color,
				"width":       fragment.Width,
				"mode":        fragment.Mode,
				"points":      fragment.Points,
			}))

	case "draw_clear":
		if frame.ArtifactID == "" {
			return
		}
		s.handler.drawCache.Clear(s.roomID, frame.ArtifactID)
		s.handler.hub.Publish(ctx, domain.RoomGroup(s.roomID),
			domain.NewEvent(domain.EventDrawClear, s.roomID, map[string]interface{}{
				"user_id":     s.userID,
				"artifact_id": frame.ArtifactID,
			}))

	case "leave":
		if err := s.handler.presenceService.Leave(ctx, s.roomID, s.userID); err != nil {
			logCtx.WithError(err).Error("Leave frame failed")
		}
		s.client.Shutdown(hub.CloseNormal, "left")

	default:
		logCtx.WithField("action", frame.Action).Debug("Unknown frame action")
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = conn.Close()
}
