package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
)

// Mocks
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, chat *domain.Chat, participantIDs []uuid.UUID) error {
	args := m.Called(ctx, chat, participantIDs)
	return args.Error(0)
}

func (m *MockChatRepository) GetByID(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) GetParticipantIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockChatRepository) GetParticipants(ctx context.Context, chatID uuid.UUID) ([]*domain.UserResponse, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserResponse), args.Error(1)
}

func (m *MockChatRepository) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) MarkRead(ctx context.Context, chatID, userID uuid.UUID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockChatRepository) Delete(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockChatRepository) Touch(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, chatID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) LastByChat(ctx context.Context, chatID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// stubSink marks listed users offline and records nothing else
type stubSink struct {
	offline map[uuid.UUID]bool
	seen    []uuid.UUID
}

func (s *stubSink) Notify(userID uuid.UUID, event string, payload any) bool {
	s.seen = append(s.seen, userID)
	return !s.offline[userID]
}

func TestSendMessage_FanOut(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockUserRepo := new(MockUserRepository)
	sender, other, offline := uuid.New(), uuid.New(), uuid.New()
	sink := &stubSink{offline: map[uuid.UUID]bool{offline: true}}
	service := NewService(mockChatRepo, mockMsgRepo, mockUserRepo, sink, nil)

	chatID := uuid.New()
	ctx := context.Background()

	mockChatRepo.On("IsParticipant", ctx, chatID, sender).Return(true, nil)
	mockUserRepo.On("GetByID", ctx, sender).Return(&domain.User{UserID: sender, Username: "alice"}, nil)
	mockMsgRepo.On("Create", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	mockChatRepo.On("Touch", ctx, chatID).Return(nil)
	mockChatRepo.On("GetParticipantIDs", ctx, chatID).Return([]uuid.UUID{sender, other, offline}, nil)

	output, err := service.SendMessage(ctx, &SendInput{ChatID: chatID, SenderID: sender, Content: "  hello  "})

	assert.NoError(t, err)
	assert.Equal(t, "hello", output.Message.Content)
	assert.Equal(t, "alice", output.Message.SenderUsername)
	// Sender receives their own message back; the offline user is missed
	assert.ElementsMatch(t, []uuid.UUID{sender, other}, output.Delivered)
	assert.Equal(t, []uuid.UUID{offline}, output.Missed)
}

func TestSendMessage_EmptyContent(t *testing.T) {
	service := NewService(new(MockChatRepository), new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	output, err := service.SendMessage(context.Background(), &SendInput{
		ChatID:   uuid.New(),
		SenderID: uuid.New(),
		Content:  "   ",
	})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMissingField))
}

func TestSendMessage_NotParticipant(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	chatID, sender := uuid.New(), uuid.New()
	ctx := context.Background()
	mockChatRepo.On("IsParticipant", ctx, chatID, sender).Return(false, nil)

	output, err := service.SendMessage(ctx, &SendInput{ChatID: chatID, SenderID: sender, Content: "hi"})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestFindOrCreatePrivateChat_Existing(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	mockUserRepo := new(MockUserRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), mockUserRepo, &stubSink{}, nil)

	userA, userB := uuid.New(), uuid.New()
	existing := &domain.Chat{ChatID: uuid.New(), Type: domain.ChatTypePrivate}

	ctx := context.Background()
	mockUserRepo.On("GetByID", ctx, userB).Return(&domain.User{UserID: userB}, nil)
	mockChatRepo.On("FindPrivateChatBetween", ctx, userA, userB).Return(existing, nil)

	chat, err := service.FindOrCreatePrivateChat(ctx, userA, userB)

	assert.NoError(t, err)
	assert.Equal(t, existing.ChatID, chat.ChatID)
	mockChatRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindOrCreatePrivateChat_Creates(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	mockUserRepo := new(MockUserRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), mockUserRepo, &stubSink{}, nil)

	userA, userB := uuid.New(), uuid.New()
	ctx := context.Background()

	mockUserRepo.On("GetByID", ctx, userB).Return(&domain.User{UserID: userB}, nil)
	mockChatRepo.On("FindPrivateChatBetween", ctx, userA, userB).Return(nil, apperrors.ChatNotFoundError())
	mockChatRepo.On("Create", ctx, mock.AnythingOfType("*domain.Chat"), []uuid.UUID{userA, userB}).Return(nil)

	chat, err := service.FindOrCreatePrivateChat(ctx, userA, userB)

	assert.NoError(t, err)
	assert.Equal(t, domain.ChatTypePrivate, chat.Type)
	assert.Equal(t, userA, chat.CreatedBy)
	mockChatRepo.AssertExpectations(t)
}

func TestFindOrCreatePrivateChat_Self(t *testing.T) {
	service := NewService(new(MockChatRepository), new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	userID := uuid.New()
	chat, err := service.FindOrCreatePrivateChat(context.Background(), userID, userID)

	assert.Error(t, err)
	assert.Nil(t, chat)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestListChats_Summaries(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	mockMsgRepo := new(MockMessageRepository)
	service := NewService(mockChatRepo, mockMsgRepo, new(MockUserRepository), &stubSink{}, nil)

	userID := uuid.New()
	chatID := uuid.New()
	chats := []*domain.Chat{{ChatID: chatID, Type: domain.ChatTypePrivate}}
	last := &domain.Message{MessageID: uuid.New(), ChatID: chatID, Content: "latest", CreatedAt: time.Now()}

	ctx := context.Background()
	mockChatRepo.On("ListByUser", ctx, userID).Return(chats, nil)
	mockChatRepo.On("GetParticipants", ctx, chatID).Return([]*domain.UserResponse{{UserID: userID}}, nil)
	mockMsgRepo.On("LastByChat", ctx, chatID).Return(last, nil)
	mockChatRepo.On("UnreadCount", ctx, chatID, userID).Return(3, nil)

	summaries, err := service.ListChats(ctx, userID)

	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "latest", summaries[0].LastMessage.Content)
	assert.Equal(t, 3, summaries[0].UnreadCount)
}

func TestGetMessages_NotParticipant(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	chatID, userID := uuid.New(), uuid.New()
	ctx := context.Background()
	mockChatRepo.On("IsParticipant", ctx, chatID, userID).Return(false, nil)

	messages, err := service.GetMessages(ctx, chatID, userID, 20, 0)

	assert.Error(t, err)
	assert.Nil(t, messages)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestDeleteChat_GroupCreatorOnly(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	creator, member := uuid.New(), uuid.New()
	chatID := uuid.New()
	group := &domain.Chat{ChatID: chatID, Type: domain.ChatTypeGroup, CreatedBy: creator}

	ctx := context.Background()
	mockChatRepo.On("GetByID", ctx, chatID).Return(group, nil)

	err := service.DeleteChat(ctx, chatID, member)

	assert.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	mockChatRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteChat_PrivateParticipant(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	userID := uuid.New()
	chatID := uuid.New()
	private := &domain.Chat{ChatID: chatID, Type: domain.ChatTypePrivate, CreatedBy: uuid.New()}

	ctx := context.Background()
	mockChatRepo.On("GetByID", ctx, chatID).Return(private, nil)
	mockChatRepo.On("IsParticipant", ctx, chatID, userID).Return(true, nil)
	mockChatRepo.On("Delete", ctx, chatID).Return(nil)

	err := service.DeleteChat(ctx, chatID, userID)

	assert.NoError(t, err)
	mockChatRepo.AssertExpectations(t)
}

func TestMarkRead(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	service := NewService(mockChatRepo, new(MockMessageRepository), new(MockUserRepository), &stubSink{}, nil)

	chatID, userID := uuid.New(), uuid.New()
	ctx := context.Background()
	mockChatRepo.On("IsParticipant", ctx, chatID, userID).Return(true, nil)
	mockChatRepo.On("MarkRead", ctx, chatID, userID).Return(nil)

	err := service.MarkRead(ctx, chatID, userID)

	assert.NoError(t, err)
	mockChatRepo.AssertExpectations(t)
}
