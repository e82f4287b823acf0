package repositories

import (
	"context"

	"feira/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create fails with errs.ErrConflict when the email is already taken.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
