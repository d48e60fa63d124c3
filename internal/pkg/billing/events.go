package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

const (
	EventCheckoutSessionCompleted           = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded             = "payment_intent.succeeded"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Event is a verified processor notification reduced to the fields the
// credit pipeline needs. The concrete types are CheckoutSessionCompleted,
// PaymentIntentSucceeded and UnhandledEvent.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

type eventHeader struct {
	ID   string
	Type string
}

func (h eventHeader) EventID() string   { return h.ID }
func (h eventHeader) EventType() string { return h.Type }
func (eventHeader) isEvent()            {}

// CheckoutSessionCompleted is the primary fulfillment signal.
type CheckoutSessionCompleted struct {
	eventHeader
	SessionID       string
	CustomerID      string
	PaymentIntentID string
	UserID          string
	Mode            string
	PaymentStatus   string
	Currency        string
	AmountSubtotal  int64
	AmountTotal     int64
	// PriceIDs is filled when the payload embeds expanded line items;
	// otherwise the price is looked up with the processor.
	PriceIDs []string
}

// AwaitingPayment is true for delayed payment methods where the session
// completes before the money arrives. Those are fulfilled on the follow-up
// async_payment_succeeded event instead.
func (e CheckoutSessionCompleted) AwaitingPayment() bool {
	return strings.EqualFold(e.PaymentStatus, PaymentStatusUnpaid)
}

// PaymentIntentSucceeded is a secondary confirmation and never grants
// credits on its own.
type PaymentIntentSucceeded struct {
	eventHeader
	PaymentIntentID string
	Amount          int64
	Currency        string
}

// UnhandledEvent is any other event type. It is acknowledged and ignored.
type UnhandledEvent struct {
	eventHeader
}

type checkoutSessionPayload struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          json.RawMessage   `json:"customer"`
	PaymentIntent     json.RawMessage   `json:"payment_intent"`
	Metadata          map[string]string `json:"metadata"`
	AmountSubtotal    int64             `json:"amount_subtotal"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	LineItems         *struct {
		Data []struct {
			Price *struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

type paymentIntentPayload struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// expandableID reads a field that is either an object ID or, when expanded,
// the object itself.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// ParseEvent converts a verified processor event into its typed variant.
func ParseEvent(ev stripe.Event) (Event, error) {
	header := eventHeader{ID: ev.ID, Type: string(ev.Type)}
	if header.ID == "" || header.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	switch header.Type {
	case EventCheckoutSessionCompleted, EventCheckoutSessionAsyncPaymentSucceed:
		if ev.Data == nil || len(ev.Data.Raw) == 0 {
			return nil, fmt.Errorf("%w: %s without data", ErrMalformedEvent, header.Type)
		}
		var p checkoutSessionPayload
		if err := json.Unmarshal(ev.Data.Raw, &p); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %v", ErrMalformedEvent, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: checkout session without id", ErrMalformedEvent)
		}
		out := CheckoutSessionCompleted{
			eventHeader:     header,
			SessionID:       p.ID,
			CustomerID:      expandableID(p.Customer),
			PaymentIntentID: expandableID(p.PaymentIntent),
			UserID:          strings.TrimSpace(p.Metadata["user_id"]),
			Mode:            p.Mode,
			PaymentStatus:   p.PaymentStatus,
			Currency:        strings.ToLower(p.Currency),
			AmountSubtotal:  p.AmountSubtotal,
			AmountTotal:     p.AmountTotal,
		}
		if p.LineItems != nil {
			for _, li := range p.LineItems.Data {
				if li.Price != nil && li.Price.ID != "" {
					out.PriceIDs = append(out.PriceIDs, li.Price.ID)
				}
			}
		}
		return out, nil

	case EventPaymentIntentSucceeded:
		var p paymentIntentPayload
		if ev.Data != nil && len(ev.Data.Raw) > 0 {
			if err := json.Unmarshal(ev.Data.Raw, &p); err != nil {
				return nil, fmt.Errorf("%w: decode payment intent: %v", ErrMalformedEvent, err)
			}
		}
		return PaymentIntentSucceeded{
			eventHeader:     header,
			PaymentIntentID: p.ID,
			Amount:          p.Amount,
			Currency:        strings.ToLower(p.Currency),
		}, nil
	}

	return UnhandledEvent{eventHeader: header}, nil
}

// ObjectID returns the processor object an event refers to, or "".
func ObjectID(ev Event) string {
	switch e := ev.(type) {
	case CheckoutSessionCompleted:
		return e.SessionID
	case PaymentIntentSucceeded:
		return e.PaymentIntentID
	}
	return ""
}
