package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/MoviAPI/app/models"
)

// Repository defines billing persistence operations.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetBalance(ctx context.Context, userID string) (int64, error)

	FindCustomerByUser(ctx context.Context, userID string) (*models.StripeCustomer, error)
	CreateCustomerMapping(ctx context.Context, mapping *models.StripeCustomer) (bool, *models.StripeCustomer, error)

	FindOrderBySession(ctx context.Context, sessionID string) (*models.StripeOrder, error)
	FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.StripeOrder, error)
	ClaimOrderAndGrant(ctx context.Context, order *models.StripeOrder) error
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]models.StripeOrder, error)
	ListOrders(ctx context.Context, limit int) ([]models.StripeOrder, error)

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, outcome, processingError string) error
	ListWebhookEvents(ctx context.Context, limit int, failedOnly bool) ([]models.BillingWebhookEvent, error)

	Ping(ctx context.Context) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var credits []int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Pluck("credits", &credits).Error; err != nil {
		return 0, err
	}
	if len(credits) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return credits[0], nil
}

func (r *gormRepository) FindCustomerByUser(ctx context.Context, userID string) (*models.StripeCustomer, error) {
	var m models.StripeCustomer
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateCustomerMapping inserts the mapping unless one already exists for
// the user, and returns whichever row is stored.
func (r *gormRepository) CreateCustomerMapping(ctx context.Context, mapping *models.StripeCustomer) (bool, *models.StripeCustomer, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(mapping)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.StripeCustomer
	if err := db.Where("user_id = ?", mapping.UserID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) FindOrderBySession(ctx context.Context, sessionID string) (*models.StripeOrder, error) {
	var o models.StripeOrder
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *gormRepository) FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.StripeOrder, error) {
	var o models.StripeOrder
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ClaimOrderAndGrant is the single atomic step of fulfillment: the order row
// is claimed through the unique session ID and the balance is incremented in
// the database, both in one transaction. A session that is already claimed
// yields ErrAlreadyProcessed and leaves the balance untouched.
func (r *gormRepository) ClaimOrderAndGrant(ctx context.Context, order *models.StripeOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_session_id"}},
			DoNothing: true,
		}).Create(order)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}

		grant := tx.Model(&models.User{}).
			Where("id = ?", order.UserID).
			UpdateColumn("credits", gorm.Expr("credits + ?", order.CreditsGranted))
		if grant.Error != nil {
			return grant.Error
		}
		if grant.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *gormRepository) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]models.StripeOrder, error) {
	var out []models.StripeOrder
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&out).Error
	return out, err
}

func (r *gormRepository) ListOrders(ctx context.Context, limit int) ([]models.StripeOrder, error) {
	var out []models.StripeOrder
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		if err := db.Model(&models.BillingWebhookEvent{}).
			Where("provider_event_id = ?", event.ProviderEventID).
			UpdateColumn("deliveries", gorm.Expr("deliveries + 1")).Error; err != nil {
			return false, nil, err
		}
	}

	var stored models.BillingWebhookEvent
	if err := db.Where("provider_event_id = ?", event.ProviderEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"outcome":          outcome,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListWebhookEvents(ctx context.Context, limit int, failedOnly bool) ([]models.BillingWebhookEvent, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if failedOnly {
		q = q.Where("outcome = ?", models.WebhookOutcomeFailed)
	}
	var out []models.BillingWebhookEvent
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
