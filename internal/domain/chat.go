package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatType distinguishes 1:1 chats from group chats
type ChatType string

const (
	// ChatTypePrivate is a 1:1 chat; at most one exists per user pair
	ChatTypePrivate ChatType = "private"
	// ChatTypeGroup is a named chat with any number of participants
	ChatTypeGroup ChatType = "group"
)

// Chat represents chat metadata; participants live in chat_participants
type Chat struct {
	ChatID    uuid.UUID `json:"chat_id"`
	Type      ChatType  `json:"type"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatParticipant links a user to a chat and carries the read receipt
type ChatParticipant struct {
	ChatID     uuid.UUID  `json:"chat_id"`
	UserID     uuid.UUID  `json:"user_id"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// ChatSummary is a chat as listed for one user, with derived fields
type ChatSummary struct {
	Chat
	Participants []*UserResponse `json:"participants"`
	LastMessage  *Message        `json:"last_message,omitempty"`
	UnreadCount  int             `json:"unread_count"`
}
