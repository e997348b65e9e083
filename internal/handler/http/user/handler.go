package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homelink-backend/internal/middleware"
	"homelink-backend/internal/service/user"
	"homelink-backend/pkg/response"
)

// Handler handles HTTP requests for the user directory
type Handler struct {
	userService *user.Service
}

// NewHandler creates a new user handler
func NewHandler(userService *user.Service) *Handler {
	return &Handler{userService: userService}
}

// UpdateRequest represents a profile update; empty fields stay unchanged
type UpdateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// List returns the user directory with presence flags
// GET /v1/users
func (h *Handler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// Get returns one user's public profile
// GET /v1/users/:id
func (h *Handler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid user id")
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// Me returns the caller's own profile
// GET /v1/users/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// Update changes the caller's own profile
// PUT /v1/users/me
func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	u, err := h.userService.Update(c.Request.Context(), userID, &user.UpdateInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}
