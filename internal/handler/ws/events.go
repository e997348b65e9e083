package ws

import (
	"encoding/json"

	"github.com/google/uuid"

	"homelink-backend/internal/domain"
)

// Frame is the wire envelope for every WebSocket message, both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Frame{Event: event, Data: data})
}

// Inbound payloads

type initiateCallPayload struct {
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Kind       domain.CallKind `json:"kind"`
}

// Respond actions
const (
	actionAccept = "accept"
	actionReject = "reject"
)

type respondCallPayload struct {
	CallID uuid.UUID `json:"call_id"`
	Action string    `json:"action"`
}

type endCallPayload struct {
	CallID uuid.UUID `json:"call_id"`
}

type sendMessagePayload struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Content string    `json:"content"`
}

type getMessagesPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// Signaling payloads are relayed opaque and never persisted. call_offer and
// call_answer carry an sdp blob; ice_candidate carries a candidate. The from
// field is stamped server-side before relaying.
type sdpSignalPayload struct {
	CallID uuid.UUID       `json:"call_id"`
	From   uuid.UUID       `json:"from,omitempty"`
	SDP    json.RawMessage `json:"sdp"`
}

type iceSignalPayload struct {
	CallID    uuid.UUID       `json:"call_id"`
	From      uuid.UUID       `json:"from,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// Outbound payloads

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type offlinePayload struct {
	CallID uuid.UUID `json:"call_id,omitempty"`
	UserID uuid.UUID `json:"user_id"`
}
