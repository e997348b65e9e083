package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homelink-backend/internal/middleware"
	"homelink-backend/internal/service/chat"
	"homelink-backend/pkg/pagination"
	"homelink-backend/pkg/response"
)

// Handler handles HTTP requests for chats and messages
type Handler struct {
	chatService *chat.Service
}

// NewHandler creates a new chat handler
func NewHandler(chatService *chat.Service) *Handler {
	return &Handler{chatService: chatService}
}

// CreatePrivateRequest opens (or finds) a 1:1 chat with another user
type CreatePrivateRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// CreateGroupRequest creates a named group chat
type CreateGroupRequest struct {
	Name         string      `json:"name" binding:"required"`
	Participants []uuid.UUID `json:"participants"`
}

// SendMessageRequest posts a message to a chat
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// List returns the caller's chats with previews and unread counts
// GET /v1/chats
func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	chats, err := h.chatService.ListChats(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"chats": chats})
}

// CreatePrivate finds or creates the 1:1 chat with another user
// POST /v1/chats/private
func (h *Handler) CreatePrivate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req CreatePrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	chatEntity, err := h.chatService.FindOrCreatePrivateChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, chatEntity)
}

// CreateGroup creates a group chat
// POST /v1/chats/group
func (h *Handler) CreateGroup(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	chatEntity, err := h.chatService.CreateGroupChat(c.Request.Context(), userID, req.Name, req.Participants)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, chatEntity)
}

// Delete removes a chat and its messages
// DELETE /v1/chats/:id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid chat id")
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), chatID, userID); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Messages pages through a chat's history, newest first
// GET /v1/chats/:id/messages
func (h *Handler) Messages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid chat id")
		return
	}

	page := pagination.Parse(c.Query("limit"), c.Query("offset"))
	messages, err := h.chatService.GetMessages(c.Request.Context(), chatID, userID, page.Limit, page.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"chat_id":  chatID,
		"messages": messages,
	})
}

// SendMessage posts a message over REST; delivery fan-out is the same as
// over the gateway
// POST /v1/chats/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid chat id")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.chatService.SendMessage(c.Request.Context(), &chat.SendInput{
		ChatID:   chatID,
		SenderID: userID,
		Content:  req.Content,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"message":   output.Message,
		"delivered": output.Delivered,
		"missed":    output.Missed,
	})
}

// MarkRead stamps the caller's read receipt for a chat
// POST /v1/chats/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid chat id")
		return
	}

	if err := h.chatService.MarkRead(c.Request.Context(), chatID, userID); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}
