package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const apiKeyPrefix = "mvi_"

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// APIKey is the bearer credential of a user. Only the SHA-256 hash of the
// secret is stored; the raw key is shown once when issued.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);not null;uniqueIndex" json:"user_id"`
	KeyHash    string     `gorm:"type:char(64);not null;default:'';index" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(20);not null;default:''" json:"key_prefix"`
	LastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at"`
	RevokedAt  *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

func (k *APIKey) IsActive() bool {
	return k != nil && k.KeyHash != "" && k.RevokedAt == nil
}

// Issue rotates the key material and returns the raw secret.
func (k *APIKey) Issue() (string, error) {
	rawKey, prefix, hash, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	k.KeyHash = hash
	k.KeyPrefix = prefix
	k.RevokedAt = nil
	k.LastUsedAt = nil
	return rawKey, nil
}

func (k *APIKey) Revoke() {
	now := time.Now()
	k.KeyHash = ""
	k.KeyPrefix = ""
	k.RevokedAt = &now
	k.LastUsedAt = nil
}

func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// LooksLikeAPIKey is a cheap shape check before hitting the database.
func LooksLikeAPIKey(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, apiKeyPrefix) && len(raw) > len(apiKeyPrefix)+16
}

func generateAPIKeyMaterial() (string, string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	rawKey := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	if len(rawKey) < 12 {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	return rawKey, rawKey[:min(len(rawKey), 16)], HashAPIKey(rawKey), nil
}
