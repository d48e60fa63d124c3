package models

import "time"

const (
	OrderStatusCompleted = "completed"

	DefaultOrderCurrency = "usd"
)

// StripeOrder records a fulfilled checkout session. The unique
// checkout_session_id is the idempotency key of the whole pipeline: an
// order row exists if and only if its credits were granted.
type StripeOrder struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CheckoutSessionID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"checkout_session_id"`
	PaymentIntentID   string    `gorm:"type:varchar(191);default:'';index" json:"payment_intent_id"`
	CustomerID        string    `gorm:"type:varchar(191);default:''" json:"customer_id"`
	UserID            string    `gorm:"type:char(36);not null;index" json:"user_id"`
	PriceID           string    `gorm:"type:varchar(191);default:''" json:"price_id"`
	AmountSubtotal    int64     `gorm:"not null;default:0" json:"amount_subtotal"`
	AmountTotal       int64     `gorm:"not null;default:0" json:"amount_total"`
	Currency          string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	PaymentStatus     string    `gorm:"type:varchar(32);default:''" json:"payment_status"`
	Status            string    `gorm:"type:varchar(32);not null;default:'completed'" json:"status"`
	CreditsGranted    int64     `gorm:"not null;default:0" json:"credits_granted"`
	CatalogDrift      bool      `gorm:"not null;default:false" json:"catalog_drift"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StripeOrder) TableName() string {
	return "stripe_orders"
}
