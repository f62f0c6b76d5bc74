package payment

import "context"

// SessionItem is one display line of a hosted checkout session. Amounts are
// integer minor units in the session currency.
type SessionItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest captures everything required to open a hosted checkout
// session with a provider.
type SessionRequest struct {
	Items         []SessionItem
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the provider-neutral view of a hosted checkout session, used both
// right after creation and when reconciling after the customer returns.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	CreatedAt       int64
	Metadata        map[string]string
	PaymentIntentID string
	ChargeID        string
	Refunded        bool
	AmountRefunded  int64
	ReceiptURL      string
}

// Paid reports whether the provider has confirmed payment for the session.
func (s Session) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Provider abstracts the operations required from an upstream hosted-checkout
// provider.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, limit int64) ([]Session, error)
}
