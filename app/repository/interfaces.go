package repository

import (
	"context"

	"github.com/ManuelReschke/MoviAPI/app/models"
)

// UserRepository defines account persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// APIKeyRepository defines bearer credential persistence operations.
type APIKeyRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.APIKey, error)
	Save(ctx context.Context, key *models.APIKey) error
	// ResolveUser returns the owner of an active key hash.
	ResolveUser(ctx context.Context, hash string) (*models.User, *models.APIKey, error)
	TouchUsage(ctx context.Context, keyID uint) error
}
