package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ifoundit/checkout-api/internal/cart"
	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/events"
	"github.com/ifoundit/checkout-api/internal/payment"
)

type stubProvider struct {
	lastRequest payment.SessionRequest
	session     payment.Session
	err         error
}

func (p *stubProvider) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	p.lastRequest = req
	if p.err != nil {
		return payment.Session{}, p.err
	}
	return p.session, nil
}

func (p *stubProvider) RetrieveSession(context.Context, string) (payment.Session, error) {
	return payment.Session{}, errors.New("not implemented")
}

func (p *stubProvider) ListSessions(context.Context, int64) ([]payment.Session, error) {
	return nil, errors.New("not implemented")
}

func newTestService(t *testing.T) (*Service, *cart.Store, *stubProvider) {
	t.Helper()
	store := cart.NewStore(cart.StoreConfig{})
	t.Cleanup(store.Close)
	provider := &stubProvider{session: payment.Session{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}}
	svc := &Service{
		Carts:      store,
		Provider:   provider,
		Currency:   "gbp",
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
		Events:     &events.Bus{},
	}
	return svc, store, provider
}

func TestCreateSessionHappyPath(t *testing.T) {
	svc, store, provider := newTestService(t)
	id, ctrl := store.Create()
	require.NoError(t, ctrl.SetCapacity(3))
	require.NoError(t, ctrl.AdjustTagQuantity("orbit", 1))

	out, err := svc.Create(context.Background(), Input{CartID: id, Email: "visitor@example.com"})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", out.SessionID)
	require.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", out.CheckoutURL)

	req := provider.lastRequest
	require.Equal(t, "gbp", req.Currency)
	require.Equal(t, "visitor@example.com", req.CustomerEmail)
	require.Equal(t, "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	require.Equal(t, "3", req.Metadata["tagCapacity"])
	require.JSONEq(t, `{"halo":1,"orbit":1}`, req.Metadata["selectedTags"])
	require.NotContains(t, req.Metadata, "freeHaloApplied")

	// 0.99 base + 3.99 halo + 4.99 orbit = 9.97
	var minorSum int64
	for _, item := range req.Items {
		minorSum += item.UnitAmount * item.Quantity
	}
	require.Equal(t, int64(997), minorSum)
}

func TestCreateSessionImplicitSelectionMetadata(t *testing.T) {
	svc, store, provider := newTestService(t)
	id, _ := store.Create()

	_, err := svc.Create(context.Background(), Input{CartID: id})
	require.NoError(t, err)

	// The metadata selection stays raw; only the flag records the implicit
	// default.
	require.JSONEq(t, `{}`, provider.lastRequest.Metadata["selectedTags"])
	require.Equal(t, "true", provider.lastRequest.Metadata["freeHaloApplied"])
	require.Len(t, provider.lastRequest.Items, 1)
	require.Equal(t, "Halo", provider.lastRequest.Items[0].Name)
}

func TestCreateSessionCartNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), Input{CartID: "missing"})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestCreateSessionProviderFailure(t *testing.T) {
	svc, store, provider := newTestService(t)
	provider.err = &payment.SessionError{Op: "create", Err: errors.New("upstream unavailable")}
	id, _ := store.Create()

	_, err := svc.Create(context.Background(), Input{CartID: id})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PAYMENT_SESSION_FAILED", appErr.Code)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)

	var sessErr *payment.SessionError
	require.ErrorAs(t, err, &sessErr)
}

func TestSessionEventsEmitted(t *testing.T) {
	svc, store, _ := newTestService(t)
	recorder := &recordingNotifier{}
	svc.Events = &events.Bus{Notifiers: []events.Notifier{recorder}}
	id, _ := store.Create()

	_, err := svc.Create(context.Background(), Input{CartID: id})
	require.NoError(t, err)

	topics := make([]string, 0, len(recorder.events))
	for _, ev := range recorder.events {
		topics = append(topics, ev.Topic)
	}
	require.Contains(t, topics, events.TopicSessionCreated)
	require.Contains(t, topics, events.TopicImplicitSelection)
}

type recordingNotifier struct {
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.events = append(n.events, ev)
	return nil
}
