package billing

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a billing failure. Only KindTransient is worth retrying.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindConfiguration  Kind = "configuration"
	KindPermission     Kind = "permission"
	KindInvalidInput   Kind = "invalid_input"
	KindTransient      Kind = "transient"
	KindUnknown        Kind = "unknown"
)

var (
	ErrUnauthenticated         = errors.New("caller is not authenticated")
	ErrUnknownSKU              = errors.New("unknown product sku")
	ErrStripeNotConfigured     = errors.New("payment processor is not configured")
	ErrWebhookNotConfigured    = errors.New("webhook signing secret is not configured")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrCheckoutInProgress      = errors.New("a checkout for this account is already in progress")
	ErrMissingUserID           = errors.New("checkout session metadata has no user_id")
	ErrInvalidUserID           = errors.New("checkout session metadata user_id is malformed")
	ErrUserNotFound            = errors.New("user not found")
	ErrAlreadyProcessed        = errors.New("checkout session already processed")
	ErrMalformedEvent          = errors.New("malformed webhook event")
	ErrCustomerMappingConflict = errors.New("customer mapping was created concurrently")
)

// Error carries a Kind alongside the failed operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification of err. Context expiry counts as
// transient; anything unclassified is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// classify keeps an existing classification and marks everything else with
// the given fallback kind.
func classify(fallback Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if k := KindOf(err); k == KindTransient {
		return newError(k, op, err)
	}
	return newError(fallback, op, err)
}
