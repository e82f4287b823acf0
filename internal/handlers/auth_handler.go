package handlers

import (
	"feira/internal/middleware"
	"feira/internal/models"
	"feira/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication and accounts.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes under /auth.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)

	requireAuth := middleware.AuthRequired(h.authService)
	authRoutes.Get("/profile", requireAuth, h.HandleGetProfile)
	authRoutes.Put("/profile", requireAuth, h.HandleUpdateProfile)
	authRoutes.Put("/change-password", requireAuth, h.HandleChangePassword)
	authRoutes.Delete("/deactivate", requireAuth, h.HandleDeactivate)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string            `json:"username" validate:"required,min=2"`
	Email    string            `json:"email" validate:"required,email"`
	Password string            `json:"password" validate:"required,min=6"`
	Role     models.Role       `json:"role" validate:"required,oneof=producer consumer logistics"`
	Profile  map[string]string `json:"profile"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.Profile,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "User registered successfully", session)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Login successful", session)
}

// HandleGetProfile returns the authenticated user.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "", fiber.Map{"user": middleware.CurrentUser(c)})
}

// UpdateProfileRequest represents the request body for a profile edit.
type UpdateProfileRequest struct {
	Username *string           `json:"username"`
	Profile  map[string]string `json:"profile"`
}

// HandleUpdateProfile applies a partial profile edit.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.Actor(c).ID, services.ProfileInput{
		Username: req.Username,
		Profile:  req.Profile,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"user": user})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// HandleChangePassword replaces the password of the authenticated user.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), middleware.Actor(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Password changed successfully", nil)
}

// HandleDeactivate disables the authenticated account.
func (h *AuthHandler) HandleDeactivate(c *fiber.Ctx) error {
	if err := h.authService.Deactivate(c.UserContext(), middleware.Actor(c).ID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Account deactivated successfully", nil)
}
