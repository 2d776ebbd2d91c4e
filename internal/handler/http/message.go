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

// MessageHandler serves chat history and image endpoints.
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// ListMessages handles GET /api/rooms/:roomId/messages?page=. Pages are
// fixed-size and newest first; page numbers start at 1.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	messages, total, err := h.messageService.ListMessages(c.Request.Context(), roomID, userID, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	views := make([]gin.H, 0, len(messages))
	for i := range messages {
		views = append(views, messageView(&messages[i]))
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"messages":  views,
		"total":     total,
		"page":      page,
		"page_size": service.MessagePageSize,
	})
}

// PostMessageRequest is the chat posting input.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostMessage handles POST /api/rooms/:roomId/messages.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content required")
		return
	}

	msg, err := h.messageService.PostChat(c.Request.Context(), roomID, userID, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, messageView(msg))
}

// UploadImages handles POST /api/rooms/:roomId/images with multipart
// form data under the "images" field.
func (h *MessageHandler) UploadImages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No images supplied")
		return
	}

	uploads := make([]service.ImageUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			logrus.WithError(err).Warn("Handler.UploadImages: failed to open form file")
			ErrorResponse(c, http.StatusBadRequest, "Unreadable file in form")
			return
		}
		defer f.Close()
		uploads = append(uploads, service.ImageUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}

	saved, err := h.messageService.UploadImages(c.Request.Context(), roomID, userID, uploads)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	views := make([]gin.H, 0, len(saved))
	for _, msg := range saved {
		views = append(views, messageView(msg))
	}
	SuccessResponse(c, http.StatusCreated, gin.H{"messages": views})
}

// DeleteImage handles DELETE /api/rooms/:roomId/images/:messageId.
func (h *MessageHandler) DeleteImage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil || messageID == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.messageService.DeleteImage(c.Request.Context(), roomID, userID, uint(messageID)); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Image deleted"})
}

func messageView(msg *domain.Message) gin.H {
	return gin.H{
		"message_id": msg.ID,
		"room_id":    msg.RoomID,
		"user_id":    msg.UserID,
		"content":    msg.Content,
		"image_url":  msg.ImageURL,
		"is_image":   msg.IsImage(),
		"created_at": msg.CreatedAt,
	}
}
