package call

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homelink-backend/internal/domain"
	"homelink-backend/internal/middleware"
	"homelink-backend/internal/service/call"
	"homelink-backend/pkg/pagination"
	"homelink-backend/pkg/response"
)

// Handler handles HTTP requests for calls
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{callService: callService}
}

// InitiateRequest starts a call to another user
type InitiateRequest struct {
	ReceiverID uuid.UUID       `json:"receiver_id" binding:"required"`
	Kind       domain.CallKind `json:"kind"`
}

// RespondRequest accepts or rejects a ringing call
type RespondRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

// Initiate starts a call
// POST /v1/calls
func (h *Handler) Initiate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.callService.Initiate(c.Request.Context(), &call.InitiateInput{
		CallerID:   userID,
		ReceiverID: req.ReceiverID,
		Kind:       req.Kind,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"call":              output.Call,
		"receiver_notified": output.ReceiverNotified,
	})
}

// Respond accepts or rejects a ringing call
// POST /v1/calls/:id/respond
func (h *Handler) Respond(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid call id")
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	updated, err := h.callService.Respond(c.Request.Context(), callID, userID, req.Action == "accept")
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

// End hangs up a call
// POST /v1/calls/:id/end
func (h *Handler) End(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid call id")
		return
	}

	updated, err := h.callService.End(c.Request.Context(), callID, userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

// Get returns one call
// GET /v1/calls/:id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid call id")
		return
	}

	callEntity, err := h.callService.GetByID(c.Request.Context(), callID, userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, callEntity)
}

// History returns the caller's call log, newest first
// GET /v1/calls
func (h *Handler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	page := pagination.Parse(c.Query("limit"), c.Query("offset"))
	calls, err := h.callService.History(c.Request.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"calls": calls})
}

// Active returns the caller's currently answered calls
// GET /v1/calls/active
func (h *Handler) Active(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	calls, err := h.callService.Active(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"calls": calls})
}
