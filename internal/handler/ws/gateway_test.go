package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink-backend/internal/domain"
	"homelink-backend/internal/service/call"
	"homelink-backend/internal/service/chat"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/jwt"
)

type stubVerifier struct {
	users map[string]uuid.UUID
}

func (v *stubVerifier) VerifyAccessToken(token string) (*jwt.Claims, error) {
	id, ok := v.users[token]
	if !ok {
		return nil, apperrors.InvalidTokenError("invalid access token")
	}
	return &jwt.Claims{UserID: id, Username: "alice"}, nil
}

// stubCallService knows at most one call, set per test
type stubCallService struct {
	call *domain.Call
}

func (s *stubCallService) Initiate(ctx context.Context, input *call.InitiateInput) (*call.InitiateOutput, error) {
	return nil, apperrors.InvalidArgumentError("not under test")
}

func (s *stubCallService) Respond(ctx context.Context, callID, userID uuid.UUID, accept bool) (*domain.Call, error) {
	return nil, apperrors.CallNotFoundError()
}

func (s *stubCallService) End(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	return nil, apperrors.CallNotFoundError()
}

func (s *stubCallService) GetByID(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	if s.call != nil && s.call.CallID == callID && s.call.HasParticipant(userID) {
		return s.call, nil
	}
	return nil, apperrors.CallNotFoundError()
}

type stubChatService struct{}

func (s *stubChatService) SendMessage(ctx context.Context, input *chat.SendInput) (*chat.SendOutput, error) {
	return &chat.SendOutput{}, nil
}

func (s *stubChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error) {
	return []*domain.ChatSummary{}, nil
}

func (s *stubChatService) GetMessages(ctx context.Context, chatID, userID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	return nil, nil
}

type stubPresence struct{}

func (s *stubPresence) SetUserOnline(ctx context.Context, userID uuid.UUID) error  { return nil }
func (s *stubPresence) SetUserOffline(ctx context.Context, userID uuid.UUID) error { return nil }

type testEnv struct {
	srv      *httptest.Server
	registry *Registry
	userID   uuid.UUID
	peerID   uuid.UUID
}

func newTestServer(t *testing.T, cfg GatewayConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		registry: NewRegistry(),
		userID:   uuid.New(),
		peerID:   uuid.New(),
	}
	verifier := &stubVerifier{users: map[string]uuid.UUID{
		"good": env.userID,
		"peer": env.peerID,
	}}
	router := NewRouter(env.registry, nil)
	gateway := NewGateway(env.registry, router, verifier, &stubCallService{}, &stubChatService{}, &stubPresence{}, nil, cfg)

	engine := gin.New()
	engine.GET("/ws", gateway.HandleWS)

	env.srv = httptest.NewServer(engine)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestHandshake_MissingToken(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(""), nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.registry.Count())
}

func TestHandshake_BadToken(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("bad"), nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.registry.Count())
}

func TestHandshake_ConnectionLimit(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16, MaxConnections: 1})

	first, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)
	defer first.Close()

	assert.Eventually(t, func() bool {
		return env.registry.Lookup(env.userID) != nil
	}, time.Second, 10*time.Millisecond)

	// A second user is turned away at the cap
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("peer"), nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// The capped-out user reconnecting replaces their own session
	again, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)
	again.Close()
}

func TestGateway_ConnectAndDispatch(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return env.registry.Lookup(env.userID) != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(&Frame{Event: domain.EventGetChats}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, domain.EventUserChats, frame.Event)

	var payload struct {
		Chats []json.RawMessage `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Empty(t, payload.Chats)
}

func TestGateway_UnknownEventGetsError(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&Frame{Event: "no_such_event"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, domain.EventError, frame.Event)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, string(apperrors.CodeInvalidArgument), payload.Code)
}

func TestGateway_RespondCallActionValidated(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(action string) errorPayload {
		t.Helper()
		raw, err := json.Marshal(map[string]any{"call_id": uuid.New(), "action": action})
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(&Frame{Event: domain.EventRespondCall, Data: raw}))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, domain.EventError, frame.Event)

		var payload errorPayload
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		return payload
	}

	// Anything outside accept/reject is rejected before touching the call
	assert.Equal(t, string(apperrors.CodeInvalidArgument), send("maybe").Code)
	assert.Equal(t, string(apperrors.CodeInvalidArgument), send("").Code)

	// A documented action reaches the service
	assert.Equal(t, string(apperrors.CodeCallNotFound), send("reject").Code)
}

func TestGateway_DisconnectUnregisters(t *testing.T) {
	env := newTestServer(t, GatewayConfig{SendQueueSize: 16})

	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("good"), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return env.registry.Lookup(env.userID) != nil
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool {
		return env.registry.Lookup(env.userID) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestRelaySignal_KeepsFieldNames(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil)

	caller, receiver := uuid.New(), uuid.New()
	callID := uuid.New()
	callSvc := &stubCallService{call: &domain.Call{
		CallID:     callID,
		CallerID:   caller,
		ReceiverID: receiver,
		Status:     domain.CallAnswered,
	}}
	gateway := NewGateway(registry, router, &stubVerifier{}, callSvc, &stubChatService{}, &stubPresence{}, nil, GatewayConfig{})

	sender := newSession(caller, "alice", nil, 4)
	target := newSession(receiver, "bob", nil, 4)
	registry.Register(sender)
	registry.Register(target)

	ctx := context.Background()

	offer, err := json.Marshal(map[string]any{"call_id": callID, "sdp": map[string]string{"type": "offer"}})
	require.NoError(t, err)
	require.NoError(t, gateway.relaySignal(ctx, sender, domain.EventCallOffer, offer))

	var frame Frame
	require.NoError(t, json.Unmarshal(<-target.send, &frame))
	assert.Equal(t, domain.EventCallOffer, frame.Event)

	var sdpOut map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame.Data, &sdpOut))
	assert.Contains(t, sdpOut, "sdp")
	assert.Contains(t, sdpOut, "from")
	assert.NotContains(t, sdpOut, "signal")

	candidate, err := json.Marshal(map[string]any{"call_id": callID, "candidate": map[string]string{"candidate": "cand"}})
	require.NoError(t, err)
	require.NoError(t, gateway.relaySignal(ctx, sender, domain.EventICECandidate, candidate))

	require.NoError(t, json.Unmarshal(<-target.send, &frame))
	assert.Equal(t, domain.EventICECandidate, frame.Event)

	var iceOut map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame.Data, &iceOut))
	assert.Contains(t, iceOut, "candidate")
	assert.Contains(t, iceOut, "from")
}

func TestRelaySignal_MissingBlobRejected(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil)

	caller, receiver := uuid.New(), uuid.New()
	callID := uuid.New()
	callSvc := &stubCallService{call: &domain.Call{
		CallID:     callID,
		CallerID:   caller,
		ReceiverID: receiver,
		Status:     domain.CallAnswered,
	}}
	gateway := NewGateway(registry, router, &stubVerifier{}, callSvc, &stubChatService{}, &stubPresence{}, nil, GatewayConfig{})

	sender := newSession(caller, "alice", nil, 4)
	registry.Register(sender)

	raw, err := json.Marshal(map[string]any{"call_id": callID})
	require.NoError(t, err)

	err = gateway.relaySignal(context.Background(), sender, domain.EventCallOffer, raw)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	err = gateway.relaySignal(context.Background(), sender, domain.EventICECandidate, raw)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}
