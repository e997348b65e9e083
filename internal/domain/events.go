package domain

// WebSocket event names, shared by the gateway and the services that emit
// notifications through it.
const (
	// Client -> server
	EventInitiateCall = "initiate_call"
	EventRespondCall  = "respond_call"
	EventEndCall      = "end_call"
	EventSendMessage  = "send_message"
	EventGetChats     = "get_chats"
	EventGetMessages  = "get_messages"

	// Signaling relay, both directions
	EventCallOffer    = "call_offer"
	EventCallAnswer   = "call_answer"
	EventICECandidate = "ice_candidate"

	// Server -> client
	EventIncomingCall      = "incoming_call"
	EventCallStatusChanged = "call_status_changed"
	EventCallEnded         = "call_ended"
	EventMessageReceived   = "message_received"
	EventUserChats         = "user_chats"
	EventChatMessages      = "chat_messages"
	EventRecipientOffline  = "recipient_offline"
	EventError             = "error"
)
