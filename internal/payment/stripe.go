package payment

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
)

// Stripe implements Provider on top of Stripe hosted Checkout.
type Stripe struct {
	client *stripe.Client
}

// NewStripe constructs a Stripe provider from an API secret key.
func NewStripe(secretKey string) (*Stripe, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return &Stripe{client: stripe.NewClient(secretKey, nil)}, nil
}

// CreateSession opens a one-off payment Checkout session with ad-hoc price
// data, one line per item.
func (p *Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if p == nil || p.client == nil {
		return Session{}, errors.New("stripe provider not configured")
	}
	if len(req.Items) == 0 {
		return Session{}, &SessionError{Op: "create", Err: errors.New("at least one line item is required")}
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	sess, err := p.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return Session{}, &SessionError{Op: "create", Err: err}
	}
	return fromStripeSession(sess), nil
}

// RetrieveSession fetches a session with the payment intent and latest charge
// expanded so the receipt URL is available after payment.
func (p *Stripe) RetrieveSession(ctx context.Context, id string) (Session, error) {
	if p == nil || p.client == nil {
		return Session{}, errors.New("stripe provider not configured")
	}
	params := &stripe.CheckoutSessionRetrieveParams{
		Expand: []*string{
			stripe.String("payment_intent"),
			stripe.String("payment_intent.latest_charge"),
		},
	}
	sess, err := p.client.V1CheckoutSessions.Retrieve(ctx, id, params)
	if err != nil {
		return Session{}, &SessionError{Op: "retrieve", SessionID: id, Err: err}
	}
	return fromStripeSession(sess), nil
}

// ListSessions returns the most recently created sessions, newest first.
func (p *Stripe) ListSessions(ctx context.Context, limit int64) ([]Session, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("stripe provider not configured")
	}
	if limit <= 0 {
		limit = 25
	}
	params := &stripe.CheckoutSessionListParams{}
	params.Limit = stripe.Int64(limit)
	params.Expand = []*string{
		stripe.String("data.payment_intent"),
		stripe.String("data.payment_intent.latest_charge"),
	}

	out := make([]Session, 0, limit)
	for sess, err := range p.client.V1CheckoutSessions.List(ctx, params) {
		if err != nil {
			return nil, &SessionError{Op: "list", Err: err}
		}
		out = append(out, fromStripeSession(sess))
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) Session {
	if sess == nil {
		return Session{}
	}
	out := Session{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
		CreatedAt:     sess.Created,
		Metadata:      sess.Metadata,
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
		if charge := sess.PaymentIntent.LatestCharge; charge != nil {
			out.ChargeID = charge.ID
			out.Refunded = charge.Refunded
			out.AmountRefunded = charge.AmountRefunded
			out.ReceiptURL = charge.ReceiptURL
		}
	}
	return out
}
