package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus is the lifecycle status of a call
type CallStatus string

const (
	// CallInitiating is the transient creation status, advanced to ringing
	// in the same operation
	CallInitiating CallStatus = "initiating"
	// CallRinging means the receiver is being notified
	CallRinging CallStatus = "ringing"
	// CallAnswered means the receiver accepted and the call is active
	CallAnswered CallStatus = "answered"
	// CallEnded means a participant hung up
	CallEnded CallStatus = "ended"
	// CallRejected means the receiver declined
	CallRejected CallStatus = "rejected"
	// CallMissed means the ring timed out before a response
	CallMissed CallStatus = "missed"
)

// CallKind distinguishes voice from video calls
type CallKind string

const (
	CallKindVoice CallKind = "voice"
	CallKindVideo CallKind = "video"
)

// IsTerminal reports whether no further transition is permitted from s
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallEnded, CallRejected, CallMissed:
		return true
	}
	return false
}

// callTransitions is the permitted status graph
var callTransitions = map[CallStatus][]CallStatus{
	CallInitiating: {CallRinging, CallEnded},
	CallRinging:    {CallAnswered, CallRejected, CallMissed, CallEnded},
	CallAnswered:   {CallEnded},
}

// CanTransition reports whether from -> to is a permitted status transition
func CanTransition(from, to CallStatus) bool {
	for _, next := range callTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Call represents a voice/video call between exactly two users.
// Status mutations go through the call service only, which serializes
// transitions per call id.
type Call struct {
	CallID     uuid.UUID  `json:"call_id"`
	CallerID   uuid.UUID  `json:"caller_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Kind       CallKind   `json:"kind"`
	Status     CallStatus `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Duration   *int       `json:"duration,omitempty"` // seconds, floor
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasParticipant reports whether userID is the caller or the receiver
func (c *Call) HasParticipant(userID uuid.UUID) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// OtherParticipant returns the participant that is not userID
func (c *Call) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}
