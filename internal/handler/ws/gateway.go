package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"homelink-backend/internal/domain"
	"homelink-backend/internal/service/call"
	"homelink-backend/internal/service/chat"
	"homelink-backend/pkg/constants"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/jwt"
	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/metrics"
	"homelink-backend/pkg/pagination"
)

// TokenVerifier validates the access token presented in the handshake
type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

// CallService is the slice of the call service the gateway dispatches to
type CallService interface {
	Initiate(ctx context.Context, input *call.InitiateInput) (*call.InitiateOutput, error)
	Respond(ctx context.Context, callID, userID uuid.UUID, accept bool) (*domain.Call, error)
	End(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error)
	GetByID(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error)
}

// ChatService is the slice of the chat service the gateway dispatches to
type ChatService interface {
	SendMessage(ctx context.Context, input *chat.SendInput) (*chat.SendOutput, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error)
	GetMessages(ctx context.Context, chatID, userID uuid.UUID, limit, offset int) ([]*domain.Message, error)
}

// PresenceWriter maintains the advisory online/offline keys
type PresenceWriter interface {
	SetUserOnline(ctx context.Context, userID uuid.UUID) error
	SetUserOffline(ctx context.Context, userID uuid.UUID) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev, restrict in production
	},
}

// GatewayConfig bounds each connection. MaxConnections of zero means no cap.
type GatewayConfig struct {
	SendQueueSize  int
	MaxMessageSize int64
	MaxConnections int
}

// Gateway owns the WebSocket endpoint: handshake authentication, session
// registration, and dispatch of inbound events to the services. It holds no
// business logic of its own.
type Gateway struct {
	registry *Registry
	router   *Router
	verifier TokenVerifier
	callSvc  CallService
	chatSvc  ChatService
	presence PresenceWriter
	metrics  *metrics.Metrics
	cfg      GatewayConfig
}

// NewGateway creates a new gateway
func NewGateway(registry *Registry, router *Router, verifier TokenVerifier, callSvc CallService, chatSvc ChatService, presence PresenceWriter, m *metrics.Metrics, cfg GatewayConfig) *Gateway {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = constants.WebSocketSendQueueSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = constants.WebSocketMaxMessageSize
	}
	return &Gateway{
		registry: registry,
		router:   router,
		verifier: verifier,
		callSvc:  callSvc,
		chatSvc:  chatSvc,
		presence: presence,
		metrics:  m,
		cfg:      cfg,
	}
}

// HandleWS upgrades the connection. The token travels in the `token` query
// parameter of the handshake request; a bad token closes the connection
// before any state is touched.
func (g *Gateway) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	claims, err := g.verifier.VerifyAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// A reconnecting user replaces their own session and never counts
	// against the cap
	if g.cfg.MaxConnections > 0 && g.registry.Count() >= g.cfg.MaxConnections &&
		g.registry.Lookup(claims.UserID) == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "connection limit reached"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := newSession(claims.UserID, claims.Username, conn, g.cfg.SendQueueSize)

	// Last connection wins: a user reconnecting evicts their old session
	if previous := g.registry.Register(session); previous != nil {
		previous.forceClose()
	}
	g.metrics.SessionOpened()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := g.presence.SetUserOnline(ctx, session.UserID); err != nil {
		logger.Warn("failed to set presence", zap.Error(err))
	}
	cancel()

	logger.Info("session opened",
		zap.String("user_id", session.UserID.String()),
		zap.String("username", session.Username))

	go session.writePump()
	g.readPump(session)
}

func (g *Gateway) readPump(session *Session) {
	defer func() {
		// Only the current binding may be removed; an evicted session must
		// not tear down its replacement's state
		if g.registry.Unregister(session) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := g.presence.SetUserOffline(ctx, session.UserID); err != nil {
				logger.Warn("failed to clear presence", zap.Error(err))
			}
			cancel()
		}
		g.metrics.SessionClosed()
		session.forceClose()

		logger.Info("session closed", zap.String("user_id", session.UserID.String()))
	}()

	session.conn.SetReadLimit(g.cfg.MaxMessageSize)
	session.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval + constants.WebSocketWriteTimeout))
	session.conn.SetPongHandler(func(string) error {
		session.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval + constants.WebSocketWriteTimeout))
		return nil
	})

	for {
		_, raw, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read error", zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			session.sendEvent(domain.EventError, &errorPayload{
				Code:    string(apperrors.CodeInvalidArgument),
				Message: "malformed frame",
			})
			continue
		}

		g.metrics.RecordEvent("in", frame.Event)
		g.dispatch(session, &frame)
	}
}

func (g *Gateway) dispatch(session *Session, frame *Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch frame.Event {
	case domain.EventInitiateCall:
		err = g.handleInitiateCall(ctx, session, frame.Data)
	case domain.EventRespondCall:
		err = g.handleRespondCall(ctx, session, frame.Data)
	case domain.EventEndCall:
		err = g.handleEndCall(ctx, session, frame.Data)
	case domain.EventSendMessage:
		err = g.handleSendMessage(ctx, session, frame.Data)
	case domain.EventGetChats:
		err = g.handleGetChats(ctx, session)
	case domain.EventGetMessages:
		err = g.handleGetMessages(ctx, session, frame.Data)
	case domain.EventCallOffer, domain.EventCallAnswer, domain.EventICECandidate:
		err = g.relaySignal(ctx, session, frame.Event, frame.Data)
	default:
		err = apperrors.InvalidArgumentError("unknown event: " + frame.Event)
	}

	if err != nil {
		appErr := apperrors.GetAppError(err)
		session.sendEvent(domain.EventError, &errorPayload{
			Code:    string(appErr.Code),
			Message: appErr.Message,
		})
	}
}

func (g *Gateway) handleInitiateCall(ctx context.Context, session *Session, data json.RawMessage) error {
	var payload initiateCallPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.InvalidArgumentError("malformed initiate_call payload")
	}

	output, err := g.callSvc.Initiate(ctx, &call.InitiateInput{
		CallerID:   session.UserID,
		ReceiverID: payload.ReceiverID,
		Kind:       payload.Kind,
	})
	if err != nil {
		return err
	}

	// The caller sees the call immediately; the service already rang the
	// receiver and reported an offline one separately
	session.sendEvent(domain.EventCallStatusChanged, output.Call)
	return nil
}

func (g *Gateway) handleRespondCall(ctx context.Context, session *Session, data json.RawMessage) error {
	var payload respondCallPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.InvalidArgumentError("malformed respond_call payload")
	}
	if payload.Action != actionAccept && payload.Action != actionReject {
		return apperrors.InvalidArgumentError("action must be accept or reject")
	}

	_, err := g.callSvc.Respond(ctx, payload.CallID, session.UserID, payload.Action == actionAccept)
	return err
}

func (g *Gateway) handleEndCall(ctx context.Context, session *Session, data json.RawMessage) error {
	var payload endCallPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.InvalidArgumentError("malformed end_call payload")
	}

	_, err := g.callSvc.End(ctx, payload.CallID, session.UserID)
	return err
}

func (g *Gateway) handleSendMessage(ctx context.Context, session *Session, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.InvalidArgumentError("malformed send_message payload")
	}

	_, err := g.chatSvc.SendMessage(ctx, &chat.SendInput{
		ChatID:   payload.ChatID,
		SenderID: session.UserID,
		Content:  payload.Content,
	})
	return err
}

func (g *Gateway) handleGetChats(ctx context.Context, session *Session) error {
	chats, err := g.chatSvc.ListChats(ctx, session.UserID)
	if err != nil {
		return err
	}
	session.sendEvent(domain.EventUserChats, gin.H{"chats": chats})
	return nil
}

func (g *Gateway) handleGetMessages(ctx context.Context, session *Session, data json.RawMessage) error {
	var payload getMessagesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.InvalidArgumentError("malformed get_messages payload")
	}

	page := pagination.Clamp(payload.Limit, payload.Offset)
	messages, err := g.chatSvc.GetMessages(ctx, payload.ChatID, session.UserID, page.Limit, page.Offset)
	if err != nil {
		return err
	}
	session.sendEvent(domain.EventChatMessages, gin.H{
		"chat_id":  payload.ChatID,
		"messages": messages,
	})
	return nil
}

// relaySignal forwards SDP/ICE payloads to the other call participant
// verbatim. Nothing is stored; an unreachable target is reported back to
// the sender.
func (g *Gateway) relaySignal(ctx context.Context, session *Session, event string, data json.RawMessage) error {
	var callID uuid.UUID
	var outbound any

	if event == domain.EventICECandidate {
		var payload iceSignalPayload
		if err := json.Unmarshal(data, &payload); err != nil || len(payload.Candidate) == 0 {
			return apperrors.InvalidArgumentError("malformed ice_candidate payload")
		}
		payload.From = session.UserID
		callID = payload.CallID
		outbound = &payload
	} else {
		var payload sdpSignalPayload
		if err := json.Unmarshal(data, &payload); err != nil || len(payload.SDP) == 0 {
			return apperrors.InvalidArgumentError("malformed " + event + " payload")
		}
		payload.From = session.UserID
		callID = payload.CallID
		outbound = &payload
	}

	c, err := g.callSvc.GetByID(ctx, callID, session.UserID)
	if err != nil {
		return err
	}

	target := c.OtherParticipant(session.UserID)
	if !g.router.Notify(target, event, outbound) {
		session.sendEvent(domain.EventRecipientOffline, &offlinePayload{
			CallID: callID,
			UserID: target,
		})
	}
	return nil
}
