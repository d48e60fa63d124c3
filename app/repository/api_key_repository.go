package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/models"
)

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// GetByUserID returns the user's key row, or a fresh unsaved one.
func (r *apiKeyRepository) GetByUserID(ctx context.Context, userID string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&key).Error
	if err == gorm.ErrRecordNotFound {
		return &models.APIKey{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) Save(ctx context.Context, key *models.APIKey) error {
	return r.db.WithContext(ctx).Save(key).Error
}

func (r *apiKeyRepository) ResolveUser(ctx context.Context, hash string) (*models.User, *models.APIKey, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}
	db := r.db.WithContext(ctx)

	var key models.APIKey
	if err := db.Where("key_hash = ? AND key_hash <> '' AND revoked_at IS NULL", trimmed).First(&key).Error; err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := db.Where("id = ?", key.UserID).First(&user).Error; err != nil {
		return nil, nil, err
	}
	return &user, &key, nil
}

func (r *apiKeyRepository) TouchUsage(ctx context.Context, keyID uint) error {
	return r.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", keyID).
		UpdateColumn("last_used_at", time.Now()).Error
}
