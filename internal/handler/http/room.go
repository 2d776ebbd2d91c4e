package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/middleware"
	"github.com/jangdahyun/codingline/internal/service"
)

// RoomHandler serves the room directory, lifecycle and moderation
// endpoints.
type RoomHandler struct {
	roomService     *service.RoomService
	presenceService *service.PresenceService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService, presenceService *service.PresenceService) *RoomHandler {
	return &RoomHandler{roomService: roomService, presenceService: presenceService}
}

// CreateRoomRequest is the room creation input.
type CreateRoomRequest struct {
	Title    string `json:"title" binding:"required,max=100"`
	Topic    string `json:"topic" binding:"omitempty,max=50"`
	Password string `json:"password" binding:"omitempty,max=128"`
	Capacity uint   `json:"capacity" binding:"omitempty"`
}

// UpdateRoomRequest carries partial room updates.
type UpdateRoomRequest struct {
	Title    *string `json:"title" binding:"omitempty,max=100"`
	Topic    *string `json:"topic" binding:"omitempty,max=50"`
	Password *string `json:"password" binding:"omitempty,max=128"`
	Capacity *uint   `json:"capacity" binding:"omitempty"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), userID, service.CreateRoomInput{
		Title:    req.Title,
		Topic:    req.Topic,
		Password: req.Password,
		Capacity: req.Capacity,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, roomView(room))
}

// ListRooms handles GET /api/rooms?q=.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	views := make([]gin.H, 0, len(rooms))
	for i := range rooms {
		views = append(views, roomView(&rooms[i]))
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": views})
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	room, err := h.roomService.FindByID(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, roomView(room))
}

// GetRoomBySlug handles GET /api/rooms/slug/:slug.
func (h *RoomHandler) GetRoomBySlug(c *gin.Context) {
	room, err := h.roomService.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, roomView(room))
}

// UpdateRoom handles PATCH /api/rooms/:roomId.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), userID, roomID, service.UpdateRoomInput{
		Title:    req.Title,
		Topic:    req.Topic,
		Password: req.Password,
		Capacity: req.Capacity,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, roomView(room))
}

// DeleteRoom handles DELETE /api/rooms/:roomId.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), userID, roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Room deleted"})
}

// CanEnter handles GET /api/rooms/:roomId/can-enter, the non-binding
// pre-check the join UI uses before opening a websocket.
func (h *RoomHandler) CanEnter(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	admission, err := h.roomService.CanEnter(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"allowed": admission.Allowed,
		"reason":  admission.Reason,
	})
}

// MemberActionRequest names the member a moderation action targets.
type MemberActionRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// KickMember handles POST /api/rooms/:roomId/kick.
func (h *RoomHandler) KickMember(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req MemberActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: user_id required")
		return
	}

	if err := h.roomService.Kick(c.Request.Context(), actorID, roomID, req.UserID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Member kicked"})
}

// UnbanMember handles POST /api/rooms/:roomId/unban.
func (h *RoomHandler) UnbanMember(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req MemberActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: user_id required")
		return
	}

	if err := h.roomService.Unban(c.Request.Context(), actorID, roomID, req.UserID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Member unbanned"})
}

// LeaveRoom handles POST /api/rooms/:roomId/leave: the explicit exit that
// skips the departure grace window.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.presenceService.Leave(c.Request.Context(), roomID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left room"})
}

// roomIDParam parses the :roomId path parameter, writing the error
// response itself on failure.
func roomIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("roomId"), 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid room id")
		return 0, false
	}
	return uint(id), true
}

func roomView(room *domain.Room) gin.H {
	return gin.H{
		"room_id":           room.ID,
		"slug":              room.Slug,
		"title":             room.Title,
		"topic":             room.Topic,
		"capacity":          room.Capacity,
		"owner_id":          room.OwnerID,
		"requires_password": room.RequiresPassword(),
		"created_at":        room.CreatedAt,
	}
}
