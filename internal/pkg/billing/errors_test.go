package billing

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestClassifyStripeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid key", &stripe.Error{HTTPStatusCode: 401, Type: stripe.ErrorTypeInvalidRequest}, KindConfiguration},
		{"restricted key", &stripe.Error{HTTPStatusCode: 403, Type: stripe.ErrorTypeInvalidRequest}, KindPermission},
		{"rate limited", &stripe.Error{HTTPStatusCode: 429, Type: stripe.ErrorTypeInvalidRequest}, KindTransient},
		{"server error", &stripe.Error{HTTPStatusCode: 502, Type: stripe.ErrorTypeAPI}, KindTransient},
		{"missing price", &stripe.Error{HTTPStatusCode: 400, Type: stripe.ErrorTypeInvalidRequest, Code: stripe.ErrorCodeResourceMissing}, KindConfiguration},
		{"bad params", &stripe.Error{HTTPStatusCode: 400, Type: stripe.ErrorTypeInvalidRequest}, KindInvalidInput},
		{"network", &net.OpError{Op: "dial", Err: fmt.Errorf("refused")}, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"other", fmt.Errorf("weird"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStripeError("op", tt.err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errBoom))
	assert.Equal(t, KindTransient, KindOf(fmt.Errorf("wrapped: %w", context.Canceled)))

	wrapped := fmt.Errorf("outer: %w", newError(KindPermission, "op", errBoom))
	assert.Equal(t, KindPermission, KindOf(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	inner := newError(KindConfiguration, "inner", errBoom)
	assert.Same(t, inner, classify(KindTransient, "outer", inner))
	assert.Equal(t, KindTransient, KindOf(classify(KindTransient, "outer", errBoom)))
	assert.Nil(t, classify(KindTransient, "outer", nil))
}
