package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/password"
)

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// PresenceRepository interface
type PresenceRepository interface {
	IsUserOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service handles user directory and profile operations
type Service struct {
	userRepo     UserRepository
	presenceRepo PresenceRepository
}

// NewService creates a new user service
func NewService(userRepo UserRepository, presenceRepo PresenceRepository) *Service {
	return &Service{userRepo: userRepo, presenceRepo: presenceRepo}
}

// DirectoryEntry is a user as shown in the directory, with advisory presence
type DirectoryEntry struct {
	*domain.UserResponse
	Online bool `json:"online"`
}

// List returns every registered user with their presence flag
func (s *Service) List(ctx context.Context) ([]*DirectoryEntry, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*DirectoryEntry, 0, len(users))
	for _, u := range users {
		online, err := s.presenceRepo.IsUserOnline(ctx, u.UserID)
		if err != nil {
			// Presence is advisory; a Redis hiccup must not break the listing
			online = false
		}
		entries = append(entries, &DirectoryEntry{UserResponse: u.ToResponse(), Online: online})
	}

	return entries, nil
}

// GetByID returns one user's public profile
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateInput carries profile changes; empty fields are left untouched
type UpdateInput struct {
	Username string
	Password string
}

// Update changes the user's own username and/or password
func (s *Service) Update(ctx context.Context, userID uuid.UUID, input *UpdateInput) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if username := strings.TrimSpace(input.Username); username != "" && username != user.Username {
		if len(username) < 3 || len(username) > 32 {
			return nil, apperrors.InvalidArgumentError("username must be between 3 and 32 characters")
		}
		exists, err := s.userRepo.UsernameExists(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return nil, apperrors.UsernameExistsError()
		}
		user.Username = username
	}

	if input.Password != "" {
		if len(input.Password) < password.MinLength {
			return nil, apperrors.InvalidArgumentError(fmt.Sprintf("password must be at least %d characters", password.MinLength))
		}
		hash, err := password.Hash(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user.ToResponse(), nil
}
