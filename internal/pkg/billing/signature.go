package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureVerifier authenticates webhook deliveries against the endpoint
// signing secret. Tolerance defaults to the library's five minutes.
type SignatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: strings.TrimSpace(secret)}
}

func (v *SignatureVerifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Verify checks the signature header over the exact raw payload and returns
// the decoded event. Any mismatch, a stale timestamp or a missing header is
// ErrInvalidSignature.
func (v *SignatureVerifier) Verify(payload []byte, header string) (stripe.Event, error) {
	const op = "verify webhook"
	if !v.Configured() {
		return stripe.Event{}, newError(KindConfiguration, op, ErrWebhookNotConfigured)
	}
	if strings.TrimSpace(header) == "" {
		return stripe.Event{}, newError(KindAuthentication, op, ErrInvalidSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, newError(KindAuthentication, op, fmt.Errorf("%w: %v", ErrInvalidSignature, err))
	}
	return ev, nil
}
