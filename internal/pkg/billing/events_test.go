package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func rawEvent(id, typ, object string) stripe.Event {
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	ev, err := ParseEvent(rawEvent("evt_1", EventCheckoutSessionCompleted, `{
		"id": "cs_test_a1",
		"object": "checkout.session",
		"mode": "payment",
		"customer": "cus_123",
		"payment_intent": {"id": "pi_456", "object": "payment_intent"},
		"metadata": {"user_id": " 0d6b2a5e-3d34-4f0e-9a57-3c6f3e1f8a10 "},
		"amount_subtotal": 7500,
		"amount_total": 7500,
		"currency": "USD",
		"payment_status": "paid",
		"line_items": {"data": [{"price": {"id": "price_premium"}}]}
	}`))
	require.NoError(t, err)

	cs, ok := ev.(CheckoutSessionCompleted)
	require.True(t, ok)
	assert.Equal(t, "evt_1", cs.EventID())
	assert.Equal(t, "cs_test_a1", cs.SessionID)
	assert.Equal(t, "cus_123", cs.CustomerID)
	assert.Equal(t, "pi_456", cs.PaymentIntentID)
	assert.Equal(t, "0d6b2a5e-3d34-4f0e-9a57-3c6f3e1f8a10", cs.UserID)
	assert.Equal(t, "usd", cs.Currency)
	assert.Equal(t, int64(7500), cs.AmountTotal)
	assert.Equal(t, []string{"price_premium"}, cs.PriceIDs)
	assert.False(t, cs.AwaitingPayment())
}

func TestParseCheckoutSessionWithoutMetadata(t *testing.T) {
	ev, err := ParseEvent(rawEvent("evt_2", EventCheckoutSessionCompleted, `{"id": "cs_test_b2", "customer": null}`))
	require.NoError(t, err)

	cs := ev.(CheckoutSessionCompleted)
	assert.Empty(t, cs.UserID)
	assert.Empty(t, cs.CustomerID)
	assert.Empty(t, cs.PriceIDs)
}

func TestParsePaymentIntentSucceeded(t *testing.T) {
	ev, err := ParseEvent(rawEvent("evt_3", EventPaymentIntentSucceeded, `{"id": "pi_789", "amount": 2000, "currency": "usd"}`))
	require.NoError(t, err)

	pi, ok := ev.(PaymentIntentSucceeded)
	require.True(t, ok)
	assert.Equal(t, "pi_789", pi.PaymentIntentID)
	assert.Equal(t, int64(2000), pi.Amount)
}

func TestParseUnhandledEvent(t *testing.T) {
	ev, err := ParseEvent(rawEvent("evt_4", "invoice.paid", `{"id": "in_1"}`))
	require.NoError(t, err)

	_, ok := ev.(UnhandledEvent)
	assert.True(t, ok)
	assert.Equal(t, "invoice.paid", ev.EventType())
}

func TestParseEventRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		ev   stripe.Event
	}{
		{"missing id", rawEvent("", EventCheckoutSessionCompleted, `{"id":"cs"}`)},
		{"missing data", stripe.Event{ID: "evt", Type: EventCheckoutSessionCompleted}},
		{"session without id", rawEvent("evt", EventCheckoutSessionCompleted, `{}`)},
		{"wrong shape", rawEvent("evt", EventCheckoutSessionCompleted, `{"id": 12}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent(tt.ev)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
