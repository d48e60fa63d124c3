package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database/dbtest"
)

type fakeProcessor struct {
	mu sync.Mutex

	customerSeq      int
	createdCustomers []string
	deletedCustomers []string
	sessions         []CheckoutSessionInput
	lineItems        map[string][]string

	createCustomerErr error
	createSessionErr  error
	lineItemsErr      error
	lineItemCalls     int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{lineItems: map[string][]string{}}
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	f.customerSeq++
	id := fmt.Sprintf("cus_test_%d", f.customerSeq)
	f.createdCustomers = append(f.createdCustomers, id)
	return id, nil
}

func (f *fakeProcessor) DeleteCustomer(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedCustomers = append(f.deletedCustomers, customerID)
	return nil
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return nil, f.createSessionErr
	}
	f.sessions = append(f.sessions, in)
	id := fmt.Sprintf("cs_test_%d", len(f.sessions))
	return &CheckoutSession{ID: id, URL: "https://checkout.stripe.test/c/pay/" + id}, nil
}

func (f *fakeProcessor) ListLineItemPriceIDs(_ context.Context, sessionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lineItemCalls++
	if f.lineItemsErr != nil {
		return nil, f.lineItemsErr
	}
	return f.lineItems[sessionID], nil
}

type fakeBalanceCache struct {
	mu          sync.Mutex
	values      map[string]int64
	invalidated []string
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{values: map[string]int64{}}
}

func (c *fakeBalanceCache) Get(_ context.Context, userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[userID]
	return v, ok
}

func (c *fakeBalanceCache) Set(_ context.Context, userID string, credits int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[userID] = credits
}

func (c *fakeBalanceCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, userID)
	c.invalidated = append(c.invalidated, userID)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return func() {}, false, l.err
	}
	if l.held[key] {
		return func() {}, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type testEnv struct {
	db        *gorm.DB
	svc       *Service
	processor *fakeProcessor
	balances  *fakeBalanceCache
	locker    *fakeLocker
	catalog   *Catalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	catalog, err := NewCatalog(DefaultProducts(config.StripeConfig{}), 100)
	require.NoError(t, err)

	env := &testEnv{
		db:        db,
		processor: newFakeProcessor(),
		balances:  newFakeBalanceCache(),
		locker:    newFakeLocker(),
		catalog:   catalog,
	}
	env.svc = NewServiceFromDB(db, Options{
		Processor: env.processor,
		Catalog:   catalog,
		Balances:  env.balances,
		Locker:    env.locker,
		Billing: config.BillingConfig{
			FallbackCredits: 100,
			LookupTimeout:   time.Second,
		},
		SuccessURL: "https://movi.test/?payment=success",
		CancelURL:  "https://movi.test/?payment=canceled",
	})
	return env
}

func (e *testEnv) seedUser(t *testing.T, credits int64) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Name:     "Test User",
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "x",
		Credits:  credits,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.First(&u, "id = ?", userID).Error)
	return u.Credits
}

func (e *testEnv) orderCount(t *testing.T, sessionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.StripeOrder{}).Where("checkout_session_id = ?", sessionID).Count(&n).Error)
	return n
}

func completedEvent(sessionID, userID, priceID string) CheckoutSessionCompleted {
	ev := CheckoutSessionCompleted{
		eventHeader:     eventHeader{ID: "evt_" + sessionID, Type: EventCheckoutSessionCompleted},
		SessionID:       sessionID,
		CustomerID:      "cus_test_1",
		PaymentIntentID: "pi_" + sessionID,
		UserID:          userID,
		Mode:            "payment",
		PaymentStatus:   PaymentStatusPaid,
		Currency:        "usd",
		AmountSubtotal:  7500,
		AmountTotal:     7500,
	}
	if priceID != "" {
		ev.PriceIDs = []string{priceID}
	}
	return ev
}

var errBoom = errors.New("boom")
