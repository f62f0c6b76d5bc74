package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ifoundit/checkout-api/internal/payment"
)

type stubProvider struct {
	sessions    []payment.Session
	retrieved   payment.Session
	retrieveErr error
	listErr     error
	lastID      string
	lastLimit   int64
}

func (p *stubProvider) CreateSession(context.Context, payment.SessionRequest) (payment.Session, error) {
	return payment.Session{}, errors.New("not implemented")
}

func (p *stubProvider) RetrieveSession(_ context.Context, id string) (payment.Session, error) {
	p.lastID = id
	return p.retrieved, p.retrieveErr
}

func (p *stubProvider) ListSessions(_ context.Context, limit int64) ([]payment.Session, error) {
	p.lastLimit = limit
	return p.sessions, p.listErr
}

func adminRequest(q, secret string) *http.Request {
	target := "/admin/orders"
	if q != "" {
		target += "?q=" + q
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if secret != "" {
		req.Header.Set("X-Admin-Secret", secret)
	}
	return req
}

func decodeRows(t *testing.T, rec *httptest.ResponseRecorder) []AdminRow {
	t.Helper()
	var env struct {
		Data []AdminRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func sampleSession(id, email string) payment.Session {
	return payment.Session{
		ID:              id,
		PaymentStatus:   "paid",
		AmountTotal:     1296,
		Currency:        "gbp",
		CustomerEmail:   email,
		CreatedAt:       1756000000,
		Metadata:        map[string]string{"tagCapacity": "3", "selectedTags": `{"halo":1}`},
		PaymentIntentID: "pi_" + id,
		ChargeID:        "ch_" + id,
	}
}

func TestAdminListRejectsBadSecret(t *testing.T) {
	h := &AdminHandler{Provider: &stubProvider{}, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("", "wrong"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, adminRequest("", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListRecentOrders(t *testing.T) {
	provider := &stubProvider{sessions: []payment.Session{
		sampleSession("cs_1", "alice@example.com"),
		sampleSession("cs_2", "bob@example.com"),
	}}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("", "top-secret"))

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeRows(t, rec)
	require.Len(t, rows, 2)
	require.Equal(t, "cs_1", rows[0].OrderID)
	require.Equal(t, "Up to 3 tags", rows[0].CapacityLabel)
	require.Equal(t, 3, rows[0].TagCapacity)
	require.Equal(t, `{"halo":1}`, rows[0].SelectedTags)
	require.Equal(t, int64(1296), rows[0].TotalAmount)
	require.Equal(t, "pi_cs_1", rows[0].StripePaymentIntentID)
	require.Equal(t, "ch_cs_1", rows[0].StripeChargeID)
	require.Equal(t, "none", rows[0].RefundStatus)
	require.Equal(t, "2025-08-24T01:46:40Z", rows[0].CreatedAt)
}

func TestAdminListLimitParameter(t *testing.T) {
	provider := &stubProvider{sessions: []payment.Session{sampleSession("cs_1", "alice@example.com")}}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?limit=5", nil)
	req.Header.Set("X-Admin-Secret", "top-secret")
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, int64(5), provider.lastLimit)

	// Out-of-range and garbage values fall back to the page cap.
	req = httptest.NewRequest(http.MethodGet, "/admin/orders?limit=500", nil)
	req.Header.Set("X-Admin-Secret", "top-secret")
	h.List(httptest.NewRecorder(), req)
	require.Equal(t, int64(maxListedSessions), provider.lastLimit)

	req = httptest.NewRequest(http.MethodGet, "/admin/orders?limit=abc", nil)
	req.Header.Set("X-Admin-Secret", "top-secret")
	h.List(httptest.NewRecorder(), req)
	require.Equal(t, int64(maxListedSessions), provider.lastLimit)
}

func TestAdminListSessionIDLookup(t *testing.T) {
	provider := &stubProvider{retrieved: sampleSession("cs_direct", "carol@example.com")}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("cs_direct", "top-secret"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cs_direct", provider.lastID)
	rows := decodeRows(t, rec)
	require.Len(t, rows, 1)
	require.Equal(t, "cs_direct", rows[0].OrderID)
}

func TestAdminListEmailFilter(t *testing.T) {
	provider := &stubProvider{sessions: []payment.Session{
		sampleSession("cs_1", "alice@example.com"),
		sampleSession("cs_2", "bob@example.com"),
	}}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("Alice", "top-secret"))

	rows := decodeRows(t, rec)
	require.Len(t, rows, 1)
	require.Equal(t, "cs_1", rows[0].OrderID)
}

func TestAdminListPaymentIntentFilter(t *testing.T) {
	provider := &stubProvider{sessions: []payment.Session{
		sampleSession("cs_1", "alice@example.com"),
		sampleSession("cs_2", "bob@example.com"),
	}}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("pi_cs_2", "top-secret"))

	rows := decodeRows(t, rec)
	require.Len(t, rows, 1)
	require.Equal(t, "cs_2", rows[0].OrderID)
}

func TestAdminListProviderFailure(t *testing.T) {
	provider := &stubProvider{listErr: errors.New("upstream unavailable")}
	h := &AdminHandler{Provider: provider, Secret: "top-secret"}

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest("", "top-secret"))

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefundStatusMapping(t *testing.T) {
	full := sampleSession("cs_full", "a@example.com")
	full.Refunded = true
	partial := sampleSession("cs_partial", "b@example.com")
	partial.AmountRefunded = 100

	require.Equal(t, "full", toAdminRow(full).RefundStatus)
	require.Equal(t, "partial", toAdminRow(partial).RefundStatus)
	require.Equal(t, "none", toAdminRow(sampleSession("cs_none", "c@example.com")).RefundStatus)
}

func TestUnknownCapacityLabelFallback(t *testing.T) {
	sess := sampleSession("cs_odd", "d@example.com")
	sess.Metadata["tagCapacity"] = "7"

	row := toAdminRow(sess)
	require.Equal(t, "Capacity 7", row.CapacityLabel)
}
