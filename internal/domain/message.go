package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a persisted chat message
type Message struct {
	MessageID      uuid.UUID `json:"message_id"`
	ChatID         uuid.UUID `json:"chat_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
