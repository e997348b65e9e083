package response

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "homelink-backend/pkg/errors"
)

// Response is the standard API response envelope
type Response struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    Meta         `json:"meta"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains response metadata
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: getRequestID(c),
		},
	})
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, errorCode, errorMessage string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: errorMessage,
		},
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: getRequestID(c),
		},
	})
}

// AppError sends an error response derived from an application error,
// wrapping unknown errors as internal
func AppError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}

// ValidationError sends a validation error response (400)
func ValidationError(c *gin.Context, message string) {
	Error(c, 400, string(apperrors.CodeInvalidArgument), message)
}

// Unauthorized sends an unauthenticated error (401)
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, string(apperrors.CodeUnauthenticated), message)
}

// Forbidden sends a forbidden error (403)
func Forbidden(c *gin.Context, message string) {
	Error(c, 403, string(apperrors.CodeForbidden), message)
}

// NotFound sends a not found error (404)
func NotFound(c *gin.Context, message string) {
	Error(c, 404, string(apperrors.CodeNotFound), message)
}

// Conflict sends a conflict error (409)
func Conflict(c *gin.Context, message string) {
	Error(c, 409, string(apperrors.CodeConflict), message)
}

// InternalError sends an internal server error (500)
func InternalError(c *gin.Context, message string) {
	Error(c, 500, string(apperrors.CodeInternal), message)
}

func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
