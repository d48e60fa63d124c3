package models

import "time"

// StripeCustomer links a user to their payment-processor customer. There is
// at most one row per user; rows are never rewritten.
type StripeCustomer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:char(36);not null;uniqueIndex" json:"user_id"`
	CustomerID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"customer_id"`
	Email      string    `gorm:"type:varchar(200);default:''" json:"email"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StripeCustomer) TableName() string {
	return "stripe_customers"
}
