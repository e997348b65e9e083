package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/metrics"
)

// MaxMessageLength caps a single chat message
const MaxMessageLength = 4096

// ChatRepository interface
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat, participantIDs []uuid.UUID) error
	GetByID(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error)
	GetParticipantIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	GetParticipants(ctx context.Context, chatID uuid.UUID) ([]*domain.UserResponse, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error)
	UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, chatID, userID uuid.UUID) error
	Delete(ctx context.Context, chatID uuid.UUID) error
	Touch(ctx context.Context, chatID uuid.UUID) error
}

// MessageRepository interface
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	LastByChat(ctx context.Context, chatID uuid.UUID) (*domain.Message, error)
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// EventSink delivers an event to one user's live session, reporting whether
// it actually arrived
type EventSink interface {
	Notify(userID uuid.UUID, event string, payload any) bool
}

// Service handles chat and message business logic
type Service struct {
	chatRepo    ChatRepository
	messageRepo MessageRepository
	userRepo    UserRepository
	sink        EventSink
	metrics     *metrics.Metrics
}

// NewService creates a new chat service
func NewService(chatRepo ChatRepository, messageRepo MessageRepository, userRepo UserRepository, sink EventSink, m *metrics.Metrics) *Service {
	return &Service{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		sink:        sink,
		metrics:     m,
	}
}

// SendInput contains a message to send
type SendInput struct {
	ChatID   uuid.UUID
	SenderID uuid.UUID
	Content  string
}

// SendOutput is the persisted message plus the per-participant delivery
// outcome. Delivery is best effort: the send succeeds even when every
// participant is offline.
type SendOutput struct {
	Message   *domain.Message
	Delivered []uuid.UUID
	Missed    []uuid.UUID
}

// SendMessage persists a message and fans it out to every participant's
// live session, the sender's included
func (s *Service) SendMessage(ctx context.Context, input *SendInput) (*SendOutput, error) {
	// 1. Validate content
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.MissingFieldError("message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperrors.InvalidArgumentError(fmt.Sprintf("message exceeds %d characters", MaxMessageLength))
	}

	// 2. Only participants may post
	ok, err := s.chatRepo.IsParticipant(ctx, input.ChatID, input.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !ok {
		return nil, apperrors.ForbiddenError("not a participant of this chat")
	}

	sender, err := s.userRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	// 3. Persist
	msg := &domain.Message{
		MessageID:      uuid.New(),
		ChatID:         input.ChatID,
		SenderID:       input.SenderID,
		SenderUsername: sender.Username,
		Content:        content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	s.metrics.MessageSent()

	if err := s.chatRepo.Touch(ctx, input.ChatID); err != nil {
		logger.Warn("failed to bump chat activity", zap.Error(err))
	}

	// 4. Fan out to every participant
	participantIDs, err := s.chatRepo.GetParticipantIDs(ctx, input.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	output := &SendOutput{Message: msg}
	for _, userID := range participantIDs {
		if s.sink.Notify(userID, domain.EventMessageReceived, msg) {
			output.Delivered = append(output.Delivered, userID)
		} else {
			output.Missed = append(output.Missed, userID)
		}
	}

	logger.Debug("message fanned out",
		zap.String("chat_id", input.ChatID.String()),
		zap.Int("delivered", len(output.Delivered)),
		zap.Int("missed", len(output.Missed)))

	return output, nil
}

// FindOrCreatePrivateChat returns the 1:1 chat between two users, creating
// it when none exists. Repeated calls always land on the same chat.
func (s *Service) FindOrCreatePrivateChat(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	if userA == userB {
		return nil, apperrors.InvalidArgumentError("cannot open a chat with yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, userB); err != nil {
		if apperrors.IsCode(err, apperrors.CodeUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to check user: %w", err)
	}

	existing, err := s.chatRepo.FindPrivateChatBetween(ctx, userA, userB)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsCode(err, apperrors.CodeChatNotFound) {
		return nil, err
	}

	chat := &domain.Chat{
		ChatID:    uuid.New(),
		Type:      domain.ChatTypePrivate,
		CreatedBy: userA,
	}
	if err := s.chatRepo.Create(ctx, chat, []uuid.UUID{userA, userB}); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	logger.Info("private chat created",
		zap.String("chat_id", chat.ChatID.String()))

	return chat, nil
}

// CreateGroupChat creates a named chat. The creator is always a participant.
func (s *Service) CreateGroupChat(ctx context.Context, creatorID uuid.UUID, name string, participantIDs []uuid.UUID) (*domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.MissingFieldError("chat name is required")
	}

	members := map[uuid.UUID]bool{creatorID: true}
	unique := []uuid.UUID{creatorID}
	for _, id := range participantIDs {
		if members[id] {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			if apperrors.IsCode(err, apperrors.CodeUserNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
		members[id] = true
		unique = append(unique, id)
	}

	chat := &domain.Chat{
		ChatID:    uuid.New(),
		Type:      domain.ChatTypeGroup,
		Name:      name,
		CreatedBy: creatorID,
	}
	if err := s.chatRepo.Create(ctx, chat, unique); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return chat, nil
}

// ListChats returns the user's chats with participants, last message, and
// unread count
func (s *Service) ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error) {
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := &domain.ChatSummary{Chat: *chat}

		summary.Participants, err = s.chatRepo.GetParticipants(ctx, chat.ChatID)
		if err != nil {
			return nil, err
		}
		summary.LastMessage, err = s.messageRepo.LastByChat(ctx, chat.ChatID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount, err = s.chatRepo.UnreadCount(ctx, chat.ChatID, userID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetMessages pages through a chat's history; only participants may read
func (s *Service) GetMessages(ctx context.Context, chatID, userID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	ok, err := s.chatRepo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !ok {
		return nil, apperrors.ForbiddenError("not a participant of this chat")
	}

	return s.messageRepo.ListByChat(ctx, chatID, limit, offset)
}

// MarkRead stamps the user's read receipt for the chat
func (s *Service) MarkRead(ctx context.Context, chatID, userID uuid.UUID) error {
	ok, err := s.chatRepo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !ok {
		return apperrors.ForbiddenError("not a participant of this chat")
	}

	return s.chatRepo.MarkRead(ctx, chatID, userID)
}

// DeleteChat removes a chat and everything in it. Any participant may
// delete a private chat; only the creator may delete a group chat.
func (s *Service) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}

	switch chat.Type {
	case domain.ChatTypeGroup:
		if chat.CreatedBy != userID {
			return apperrors.ForbiddenError("only the creator can delete a group chat")
		}
	default:
		ok, err := s.chatRepo.IsParticipant(ctx, chatID, userID)
		if err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if !ok {
			return apperrors.ForbiddenError("not a participant of this chat")
		}
	}

	if err := s.chatRepo.Delete(ctx, chatID); err != nil {
		return err
	}

	logger.Info("chat deleted",
		zap.String("chat_id", chatID.String()),
		zap.String("deleted_by", userID.String()))

	return nil
}
