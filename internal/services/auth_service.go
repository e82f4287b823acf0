package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is used when NewAuthService is given a non-positive TTL.
const DefaultTokenTTL = 24 * time.Hour

const minPasswordLength = 6

var validate = validator.New()

// Claims is the identity carried by a valid token.
type Claims struct {
	UserID string
	Role   models.Role
}

// AuthService handles business logic for authentication and accounts.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
	Profile  map[string]string
}

func (in RegisterInput) validate() error {
	var fields []string
	if utf8.RuneCountInString(strings.TrimSpace(in.Username)) < 2 {
		fields = append(fields, "username: must be at least 2 characters")
	}
	if validate.Var(in.Email, "required,email") != nil {
		fields = append(fields, "email: must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, fmt.Sprintf("password: must be at least %d characters", minPasswordLength))
	}
	if !in.Role.IsValid() {
		fields = append(fields, "role: must be one of producer, consumer, logistics")
	}
	if len(fields) > 0 {
		return errs.Validation("invalid registration", fields...)
	}
	return nil
}

// Session is a user together with a freshly issued token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates an active account and signs it in. A taken email fails
// with errs.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	profile := make(map[string]string, len(in.Profile))
	for k, v := range in.Profile {
		profile[k] = v
	}
	user := &models.User{
		Username: strings.TrimSpace(in.Username),
		Email:    in.Email,
		Password: string(hashedPassword),
		Role:     in.Role,
		Profile:  profile,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errs.Conflict("email %s is already registered", in.Email)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &Session{User: user, Token: token}, nil
}

// Login authenticates by email and password. Unknown emails, wrong
// passwords and deactivated accounts all fail with errs.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errs.Unauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, errs.Unauthorized("account is deactivated")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrUnauthorized, "invalid token", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errs.Unauthorized("invalid token")
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return nil, errs.Unauthorized("token carries no user")
	}
	return &Claims{UserID: userID, Role: models.Role(role)}, nil
}

// CurrentUser resolves the account behind a token. Deactivated accounts
// are rejected.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Unauthorized("user no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errs.Unauthorized("account is deactivated")
	}
	return user, nil
}

// ProfileInput is a partial profile edit. Username is ignored unless it
// has at least two characters; Profile entries are merged.
type ProfileInput struct {
	Username *string
	Profile  map[string]string
}

// UpdateProfile applies a profile edit to the user.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		if name := strings.TrimSpace(*in.Username); utf8.RuneCountInString(name) >= 2 {
			user.Username = name
		}
	}
	if len(in.Profile) > 0 {
		if user.Profile == nil {
			user.Profile = make(map[string]string, len(in.Profile))
		}
		for k, v := range in.Profile {
			user.Profile[k] = v
		}
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if currentPassword == "" || len(newPassword) < minPasswordLength {
		return errs.Validation("invalid password change",
			"currentPassword: is required",
			fmt.Sprintf("newPassword: must be at least %d characters", minPasswordLength))
	}
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return errs.Unauthorized("current password is incorrect")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	s.logger.Info("password changed", zap.String("user_id", id))
	return nil
}

// Deactivate disables the account. Its tokens stop working immediately
// because every request re-reads the user.
func (s *AuthService) Deactivate(ctx context.Context, id string) error {
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	s.logger.Info("account deactivated", zap.String("user_id", id))
	return nil
}
