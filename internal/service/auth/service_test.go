package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/jwt"
	"homelink-backend/pkg/password"
)

// Mocks
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockUserRepository) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockInvitationCodeRepository struct {
	mock.Mock
}

func (m *MockInvitationCodeRepository) Get(ctx context.Context, code string) (*domain.InvitationCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvitationCode), args.Error(1)
}

func (m *MockInvitationCodeRepository) MarkUsed(ctx context.Context, code string, userID uuid.UUID) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

func newTestService(userRepo *MockUserRepository, inviteRepo *MockInvitationCodeRepository) *Service {
	jwtManager := jwt.NewManager("test-secret-key-thats-long-enough", 15*time.Minute, 30*24*time.Hour)
	return NewService(userRepo, inviteRepo, jwtManager)
}

func TestRegister(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	input := &RegisterInput{
		Username:       "newuser",
		Password:       "password123",
		InvitationCode: "secret_invite",
	}

	ctx := context.Background()

	mockInviteRepo.On("Get", ctx, input.InvitationCode).Return(&domain.InvitationCode{Code: input.InvitationCode}, nil)
	mockUserRepo.On("UsernameExists", ctx, input.Username).Return(false, nil)
	mockUserRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	mockInviteRepo.On("MarkUsed", ctx, input.InvitationCode, mock.AnythingOfType("uuid.UUID")).Return(nil)
	mockUserRepo.On("SaveRefreshToken", ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	output, err := service.Register(ctx, input)

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, input.Username, output.User.Username)
	assert.NotEmpty(t, output.AccessToken)
	assert.NotEmpty(t, output.RefreshToken)

	mockUserRepo.AssertExpectations(t)
	mockInviteRepo.AssertExpectations(t)
}

func TestRegister_InvalidInvitationCode(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	input := &RegisterInput{
		Username:       "newuser",
		Password:       "password123",
		InvitationCode: "wrong_code",
	}

	ctx := context.Background()

	mockInviteRepo.On("Get", ctx, input.InvitationCode).Return(nil, apperrors.NotFoundError("Invitation code"))

	output, err := service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	mockInviteRepo.AssertExpectations(t)
}

func TestRegister_UsernameTaken(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	input := &RegisterInput{
		Username:       "taken",
		Password:       "password123",
		InvitationCode: "secret_invite",
	}

	ctx := context.Background()

	mockInviteRepo.On("Get", ctx, input.InvitationCode).Return(&domain.InvitationCode{Code: input.InvitationCode}, nil)
	mockUserRepo.On("UsernameExists", ctx, input.Username).Return(true, nil)

	output, err := service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUsernameExists))
}

func TestRegister_ShortPassword(t *testing.T) {
	service := newTestService(new(MockUserRepository), new(MockInvitationCodeRepository))

	output, err := service.Register(context.Background(), &RegisterInput{
		Username:       "newuser",
		Password:       "short",
		InvitationCode: "secret_invite",
	})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestLogin(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	hash, err := password.Hash("password123")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Username:     "alice",
		PasswordHash: hash,
	}

	ctx := context.Background()

	mockUserRepo.On("GetByUsername", ctx, "alice").Return(user, nil)
	mockUserRepo.On("SaveRefreshToken", ctx, user.UserID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	output, err := service.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, user.UserID, output.User.UserID)
	assert.NotEmpty(t, output.AccessToken)

	mockUserRepo.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	hash, err := password.Hash("password123")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Username:     "alice",
		PasswordHash: hash,
	}

	ctx := context.Background()
	mockUserRepo.On("GetByUsername", ctx, "alice").Return(user, nil)

	output, err := service.Login(ctx, &LoginInput{Username: "alice", Password: "nope"})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCreds))
}

func TestLogin_UnknownUser(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	ctx := context.Background()
	mockUserRepo.On("GetByUsername", ctx, "ghost").Return(nil, apperrors.UserNotFoundError())

	output, err := service.Login(ctx, &LoginInput{Username: "ghost", Password: "password123"})

	assert.Error(t, err)
	assert.Nil(t, output)
	// Unknown user and wrong password look identical to the caller
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCreds))
}

func TestRefresh_Rotation(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	hash, err := password.Hash("password123")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Username:     "alice",
		PasswordHash: hash,
	}

	ctx := context.Background()

	// Login first so the stored token matches what we present later
	var storedToken string
	mockUserRepo.On("GetByUsername", ctx, "alice").Return(user, nil)
	mockUserRepo.On("SaveRefreshToken", ctx, user.UserID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			storedToken = args.String(2)
		}).Return(nil)

	loginOut, err := service.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
	assert.NoError(t, err)

	expires := time.Now().Add(time.Hour)
	user.RefreshToken = &storedToken
	user.RefreshExpires = &expires
	mockUserRepo.On("GetByID", ctx, user.UserID).Return(user, nil)

	refreshOut, err := service.Refresh(ctx, loginOut.RefreshToken)

	assert.NoError(t, err)
	assert.NotNil(t, refreshOut)
	assert.NotEmpty(t, refreshOut.AccessToken)
}

func TestRefresh_RevokedToken(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	jwtManager := jwt.NewManager("test-secret-key-thats-long-enough", 15*time.Minute, 30*24*time.Hour)
	userID := uuid.New()
	token, err := jwtManager.GenerateRefreshToken(userID, "alice")
	assert.NoError(t, err)

	other := "some-other-token"
	user := &domain.User{UserID: userID, Username: "alice", RefreshToken: &other}

	ctx := context.Background()
	mockUserRepo.On("GetByID", ctx, userID).Return(user, nil)

	output, err := service.Refresh(ctx, token)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	jwtManager := jwt.NewManager("test-secret-key-thats-long-enough", 15*time.Minute, 30*24*time.Hour)
	accessToken, err := jwtManager.GenerateAccessToken(uuid.New(), "alice")
	assert.NoError(t, err)

	// An access token must not work as a refresh token
	output, err := service.Refresh(context.Background(), accessToken)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestVerifyAccessToken_RefreshTokenRejected(t *testing.T) {
	service := newTestService(new(MockUserRepository), new(MockInvitationCodeRepository))

	jwtManager := jwt.NewManager("test-secret-key-thats-long-enough", 15*time.Minute, 30*24*time.Hour)
	refreshToken, err := jwtManager.GenerateRefreshToken(uuid.New(), "alice")
	assert.NoError(t, err)

	// A long-lived refresh token must not authenticate requests
	claims, err := service.VerifyAccessToken(refreshToken)

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestLogout(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockInviteRepo := new(MockInvitationCodeRepository)
	service := newTestService(mockUserRepo, mockInviteRepo)

	userID := uuid.New()
	ctx := context.Background()
	mockUserRepo.On("ClearRefreshToken", ctx, userID).Return(nil)

	err := service.Logout(ctx, userID)

	assert.NoError(t, err)
	mockUserRepo.AssertExpectations(t)
}
