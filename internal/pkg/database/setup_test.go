package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database/dbtest"
)

func TestAutoMigrateCreatesAllTables(t *testing.T) {
	db := dbtest.New(t)

	for _, table := range []string{"users", "api_keys", "stripe_customers", "stripe_orders", "billing_webhook_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	require.NoError(t, database.Ping(context.Background(), db))
}

func TestCheckoutSessionIDIsUnique(t *testing.T) {
	db := dbtest.New(t)

	first := &models.StripeOrder{CheckoutSessionID: "cs_test_1", UserID: "u", Currency: "usd", Status: models.OrderStatusCompleted}
	require.NoError(t, db.Create(first).Error)

	second := &models.StripeOrder{CheckoutSessionID: "cs_test_1", UserID: "u", Currency: "usd", Status: models.OrderStatusCompleted}
	assert.Error(t, db.Create(second).Error)
}
