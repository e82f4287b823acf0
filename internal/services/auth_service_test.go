package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = "user-1" }).
		Return(nil).Once()

	session, err := authService.Register(ctx, services.RegisterInput{
		Username: " Maria ",
		Email:    "Maria@Example.com",
		Password: "password123",
		Role:     models.RoleConsumer,
		Profile:  map[string]string{"phone": "555"},
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, "Maria", session.User.Username)
	assert.Equal(t, "maria@example.com", session.User.Email)
	assert.True(t, session.User.IsActive)
	assert.NotEqual(t, "password123", session.User.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(session.User.Password), []byte("password123")))
	assert.NotEmpty(t, session.Token)
	mockRepo.AssertExpectations(t)

	// Duplicate email
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Return(errs.Conflict("email taken")).Once()
	_, err = authService.Register(ctx, services.RegisterInput{
		Username: "Maria", Email: "maria@example.com", Password: "password123", Role: models.RoleConsumer,
	})
	assert.ErrorIs(t, err, errs.ErrConflict)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	_, err := authService.Register(context.Background(), services.RegisterInput{
		Username: "M",
		Email:    "not-an-email",
		Password: "123",
		Role:     models.Role("admin"),
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Len(t, errs.FieldsOf(err), 4)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: hashed(t, "password123"),
		Role:     models.RoleProducer,
		IsActive: true,
	}

	// Successful login
	mockRepo.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()
	session, err := authService.Login(ctx, "TEST@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user, session.User)

	parsedToken, err := jwt.Parse(session.Token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "producer", claims["role"])

	// Wrong password
	mockRepo.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()
	_, err = authService.Login(ctx, "test@example.com", "wrongpassword")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	// Unknown email
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, errs.NotFound("user", "nobody@example.com")).Once()
	_, err = authService.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	// Deactivated account
	inactive := *user
	inactive.IsActive = false
	mockRepo.On("GetByEmail", ctx, "test@example.com").Return(&inactive, nil).Once()
	_, err = authService.Login(ctx, "test@example.com", "password123")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	user := &models.User{ID: "user-9", Email: "c@example.com", Password: hashed(t, "secret1"), Role: models.RoleLogistics, IsActive: true}
	mockRepo.On("GetByEmail", ctx, "c@example.com").Return(user, nil).Once()
	session, err := authService.Login(ctx, "c@example.com", "secret1")
	require.NoError(t, err)

	claims, err := authService.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, models.RoleLogistics, claims.Role)

	_, err = authService.ValidateToken("garbage")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	other := services.NewAuthService(mockRepo, "another_secret", time.Hour, nil)
	_, err = other.ValidateToken(session.Token)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-9",
		"role":    "logistics",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = authService.ValidateToken(expiredToken)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	user := &models.User{ID: "u1", Username: "joao", IsActive: true, Profile: map[string]string{"phone": "1", "city": "Recife"}}
	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	mockRepo.On("Update", ctx, user).Return(nil).Once()

	short := "j"
	updated, err := authService.UpdateProfile(ctx, "u1", services.ProfileInput{
		Username: &short,
		Profile:  map[string]string{"phone": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "joao", updated.Username)
	assert.Equal(t, map[string]string{"phone": "2", "city": "Recife"}, updated.Profile)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	user := &models.User{ID: "u1", Password: hashed(t, "oldpass"), IsActive: true}

	err := authService.ChangePassword(ctx, "u1", "oldpass", "123")
	assert.ErrorIs(t, err, errs.ErrValidation)

	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	err = authService.ChangePassword(ctx, "u1", "wrong", "newpass")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	mockRepo.On("Update", ctx, user).Return(nil).Once()
	require.NoError(t, authService.ChangePassword(ctx, "u1", "oldpass", "newpass"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("newpass")))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Deactivate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, nil)

	user := &models.User{ID: "u1", IsActive: true}
	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	mockRepo.On("Update", ctx, user).Return(nil).Once()
	require.NoError(t, authService.Deactivate(ctx, "u1"))
	assert.False(t, user.IsActive)

	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	_, err := authService.CurrentUser(ctx, "u1")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	mockRepo.AssertExpectations(t)
}
