package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/jwt"
	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/password"
)

// UserRepository interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error
}

// InvitationCodeRepository interface
type InvitationCodeRepository interface {
	Get(ctx context.Context, code string) (*domain.InvitationCode, error)
	MarkUsed(ctx context.Context, code string, userID uuid.UUID) error
}

// Service handles authentication business logic
type Service struct {
	userRepo   UserRepository
	inviteRepo InvitationCodeRepository
	jwtManager *jwt.Manager
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, inviteRepo InvitationCodeRepository, jwtManager *jwt.Manager) *Service {
	return &Service{
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		jwtManager: jwtManager,
	}
}

// RegisterInput contains user registration data
type RegisterInput struct {
	Username       string
	Password       string
	InvitationCode string
}

// AuthOutput contains the user together with a fresh token pair
type AuthOutput struct {
	User         *domain.UserResponse
	AccessToken  string
	RefreshToken string
}

// Register creates a new user account. Registration is closed: it requires a
// valid invitation code.
func (s *Service) Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	// 1. Validate input
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	// 2. Verify the invitation code
	invite, err := s.inviteRepo.Get(ctx, input.InvitationCode)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.ForbiddenError("invalid invitation code")
		}
		return nil, fmt.Errorf("failed to check invitation code: %w", err)
	}

	// 3. Check username uniqueness
	exists, err := s.userRepo.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, apperrors.UsernameExistsError()
	}

	// 4. Hash password
	passwordHash, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 5. Create user
	user := &domain.User{
		UserID:         uuid.New(),
		Username:       input.Username,
		PasswordHash:   passwordHash,
		InvitationCode: invite.Code,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.inviteRepo.MarkUsed(ctx, invite.Code, user.UserID); err != nil {
		logger.Warn("failed to record invitation code use", zap.Error(err))
	}

	// 6. Issue tokens
	return s.issueTokens(ctx, user)
}

// LoginInput contains login credentials
type LoginInput struct {
	Username string
	Password string
}

// Login authenticates a user by username and password
func (s *Service) Login(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	if input.Username == "" || input.Password == "" {
		return nil, apperrors.MissingFieldError("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeUserNotFound) {
			return nil, apperrors.InvalidCredentialsError()
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !password.Verify(user.PasswordHash, input.Password) {
		return nil, apperrors.InvalidCredentialsError()
	}

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a valid refresh token for a fresh token pair. The stored
// token is rotated, so each refresh token works exactly once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthOutput, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}

	// The presented token must match the one stored at last issue time
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, apperrors.InvalidTokenError("refresh token has been revoked")
	}
	if user.RefreshExpires != nil && user.RefreshExpires.Before(time.Now()) {
		return nil, apperrors.ExpiredTokenError()
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the user's refresh token
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// VerifyAccessToken validates an access token and returns its claims. A
// refresh token is rejected here: it must only ever reach Refresh.
func (s *Service) VerifyAccessToken(token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid access token")
	}
	return claims, nil
}

func (s *Service) issueTokens(ctx context.Context, user *domain.User) (*AuthOutput, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.UserID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.jwtManager.RefreshTokenDuration())
	if err := s.userRepo.SaveRefreshToken(ctx, user.UserID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &AuthOutput{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func validateRegisterInput(input *RegisterInput) error {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return apperrors.MissingFieldError("username is required")
	}
	if len(input.Username) < 3 || len(input.Username) > 32 {
		return apperrors.InvalidArgumentError("username must be between 3 and 32 characters")
	}
	if len(input.Password) < password.MinLength {
		return apperrors.InvalidArgumentError(fmt.Sprintf("password must be at least %d characters", password.MinLength))
	}
	if input.InvitationCode == "" {
		return apperrors.MissingFieldError("invitation code is required")
	}
	return nil
}
