package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/events"
	"github.com/ifoundit/checkout-api/internal/lock"
	"github.com/ifoundit/checkout-api/internal/payment"
)

type stubProvider struct {
	session payment.Session
	err     error
}

func (p *stubProvider) CreateSession(context.Context, payment.SessionRequest) (payment.Session, error) {
	return payment.Session{}, errors.New("not implemented")
}

func (p *stubProvider) RetrieveSession(context.Context, string) (payment.Session, error) {
	return p.session, p.err
}

func (p *stubProvider) ListSessions(context.Context, int64) ([]payment.Session, error) {
	return nil, errors.New("not implemented")
}

func paidSession() payment.Session {
	return payment.Session{
		ID:            "cs_test_paid",
		Status:        "complete",
		PaymentStatus: "paid",
		AmountTotal:   1296,
		Currency:      "gbp",
		CustomerEmail: "visitor@example.com",
		Metadata: map[string]string{
			"tagCapacity":     "3",
			"selectedTags":    `{"halo":1,"orbit":1}`,
			"freeHaloApplied": "",
		},
	}
}

func TestExchangeIssuesClaimURL(t *testing.T) {
	fixed := time.UnixMilli(1756000000000)
	svc := &Service{
		Provider:   &stubProvider{session: paidSession()},
		Secret:     "a-32-char-shared-secret-for-test",
		MainAppURL: "https://app.example.com/claim",
		Now:        func() time.Time { return fixed },
	}

	out, err := svc.Exchange(context.Background(), "cs_test_paid")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.HandoffURL, "https://app.example.com/claim?token="))

	parsed, err := url.Parse(out.HandoffURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	plaintext, err := Decrypt(svc.Secret, token)
	require.NoError(t, err)

	var payload Payload
	require.NoError(t, json.Unmarshal(plaintext, &payload))
	require.Equal(t, "cs_test_paid", payload.StripeSessionID)
	require.Equal(t, "visitor@example.com", payload.CustomerEmail)
	require.Equal(t, "3", payload.TagCapacity)
	require.JSONEq(t, `{"halo":1,"orbit":1}`, payload.SelectedTags)
	require.Equal(t, fixed.UnixMilli(), payload.Timestamp)
}

func TestExchangeRejectsUnpaidSession(t *testing.T) {
	sess := paidSession()
	sess.PaymentStatus = "unpaid"
	svc := &Service{
		Provider:   &stubProvider{session: sess},
		Secret:     "secret",
		MainAppURL: "https://app.example.com/claim",
	}

	_, err := svc.Exchange(context.Background(), sess.ID)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PAYMENT_NOT_CONFIRMED", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestExchangeProviderFailure(t *testing.T) {
	svc := &Service{
		Provider:   &stubProvider{err: errors.New("upstream unavailable")},
		Secret:     "secret",
		MainAppURL: "https://app.example.com/claim",
	}

	_, err := svc.Exchange(context.Background(), "cs_missing")

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "SESSION_NOT_FOUND", appErr.Code)
}

func TestExchangeEmitsReconciliationEvents(t *testing.T) {
	recorder := &recordingNotifier{}
	svc := &Service{
		Provider:   &stubProvider{session: paidSession()},
		Secret:     "secret",
		MainAppURL: "https://app.example.com/claim",
		Events:     &events.Bus{Notifiers: []events.Notifier{recorder}},
	}

	_, err := svc.Exchange(context.Background(), "cs_test_paid")
	require.NoError(t, err)

	topics := make([]string, 0, len(recorder.events))
	for _, ev := range recorder.events {
		topics = append(topics, ev.Topic)
	}
	require.Equal(t, []string{events.TopicOrderReconciled, events.TopicHandoffIssued}, topics)
}

func TestExchangeSerializesBehindLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := &Service{
		Provider:   &stubProvider{session: paidSession()},
		Secret:     "a-32-char-shared-secret-for-test",
		MainAppURL: "https://app.example.com/claim",
		Locks:      &lock.Locker{R: client},
	}

	out, err := svc.Exchange(context.Background(), "cs_test_paid")
	require.NoError(t, err)
	require.Contains(t, out.HandoffURL, "token=")

	// The lock key is released once the exchange finishes.
	require.False(t, mr.Exists("handoff:cs_test_paid"))
}

type recordingNotifier struct {
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.events = append(n.events, ev)
	return nil
}
