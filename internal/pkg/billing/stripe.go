package billing

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
)

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct {
	customers customer.Client
	sessions  session.Client
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	backend := stripe.GetBackend(stripe.APIBackend)
	return &StripeProcessor{
		customers: customer.Client{B: backend, Key: secretKey},
		sessions:  session.Client{B: backend, Key: secretKey},
	}
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID)
	params.Context = ctx

	c, err := p.customers.New(params)
	if err != nil {
		return "", classifyStripeError("create customer", err)
	}
	return c.ID, nil
}

func (p *StripeProcessor) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := p.customers.Del(customerID, params); err != nil {
		return classifyStripeError("delete customer", err)
	}
	return nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	mode := in.Mode
	if mode == "" {
		mode = string(stripe.CheckoutSessionModePayment)
	}
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(in.CustomerID),
		ClientReferenceID:  stripe.String(in.UserID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(mode),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.AddMetadata("user_id", in.UserID)
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, classifyStripeError("create checkout session", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProcessor) ListLineItemPriceIDs(ctx context.Context, sessionID string) ([]string, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(10)

	var ids []string
	iter := p.sessions.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		if li.Price != nil && li.Price.ID != "" {
			ids = append(ids, li.Price.ID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, classifyStripeError("list line items", err)
	}
	return ids, nil
}

// classifyStripeError maps API failures onto Kind so callers can choose
// between a configuration report and a retry.
func classifyStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusUnauthorized:
			return newError(KindConfiguration, op, err)
		case se.HTTPStatusCode == http.StatusForbidden:
			return newError(KindPermission, op, err)
		case se.HTTPStatusCode == http.StatusTooManyRequests,
			se.HTTPStatusCode >= http.StatusInternalServerError,
			se.Type == stripe.ErrorTypeAPI:
			return newError(KindTransient, op, err)
		case se.Code == stripe.ErrorCodeResourceMissing:
			return newError(KindConfiguration, op, err)
		default:
			return newError(KindInvalidInput, op, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(KindTransient, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindTransient, op, err)
	}
	return newError(KindUnknown, op, err)
}
