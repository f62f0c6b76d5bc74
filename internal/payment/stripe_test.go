package payment

import (
	"context"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"
)

func TestNewStripeRequiresKey(t *testing.T) {
	_, err := NewStripe("  ")
	require.Error(t, err)

	p, err := NewStripe("sk_test_123")
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestCreateSessionRequiresItems(t *testing.T) {
	p, err := NewStripe("sk_test_123")
	require.NoError(t, err)

	_, err = p.CreateSession(context.Background(), SessionRequest{Currency: "gbp"})

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, "create", sessErr.Op)
}

func TestFromStripeSession(t *testing.T) {
	sess := &stripe.CheckoutSession{
		ID:            "cs_test_abc",
		URL:           "https://checkout.stripe.com/c/pay/cs_test_abc",
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   1296,
		Currency:      stripe.CurrencyGBP,
		Created:       1756000000,
		Metadata:      map[string]string{"tagCapacity": "3"},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: "visitor@example.com",
		},
		PaymentIntent: &stripe.PaymentIntent{
			ID: "pi_123",
			LatestCharge: &stripe.Charge{
				ID:             "ch_123",
				ReceiptURL:     "https://pay.stripe.com/receipts/r1",
				AmountRefunded: 500,
			},
		},
	}

	got := fromStripeSession(sess)

	require.Equal(t, "cs_test_abc", got.ID)
	require.Equal(t, "paid", got.PaymentStatus)
	require.True(t, got.Paid())
	require.Equal(t, int64(1296), got.AmountTotal)
	require.Equal(t, "gbp", got.Currency)
	require.Equal(t, "visitor@example.com", got.CustomerEmail)
	require.Equal(t, "pi_123", got.PaymentIntentID)
	require.Equal(t, "ch_123", got.ChargeID)
	require.False(t, got.Refunded)
	require.Equal(t, int64(500), got.AmountRefunded)
	require.Equal(t, "https://pay.stripe.com/receipts/r1", got.ReceiptURL)
	require.Equal(t, "3", got.Metadata["tagCapacity"])
}

func TestFromStripeSessionNil(t *testing.T) {
	require.Zero(t, fromStripeSession(nil))
}

func TestSessionErrorUnwrap(t *testing.T) {
	inner := context.Canceled
	err := &SessionError{Op: "retrieve", SessionID: "cs_1", Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "cs_1")
}
