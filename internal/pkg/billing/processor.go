package billing

import "context"

// Processor is the slice of the payment processor API the pipeline uses.
type Processor interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	ListLineItemPriceIDs(ctx context.Context, sessionID string) ([]string, error)
}

type CheckoutSessionInput struct {
	CustomerID string
	PriceID    string
	Mode       string
	UserID     string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}
