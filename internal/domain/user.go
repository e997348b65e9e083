package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account
type User struct {
	UserID         uuid.UUID  `json:"user_id"`
	Username       string     `json:"username"`
	PasswordHash   string     `json:"-"`
	InvitationCode string     `json:"-"`
	RefreshToken   *string    `json:"-"`
	RefreshExpires *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserResponse is the public view of a user, safe to return to any client
type UserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse strips credential fields from a user
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		UserID:    u.UserID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// InvitationCode gates registration to invited users
type InvitationCode struct {
	Code      string     `json:"code"`
	UsedBy    *uuid.UUID `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
