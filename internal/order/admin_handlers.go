package order

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/payment"
	"github.com/ifoundit/checkout-api/internal/pricing"
)

const maxListedSessions = 20

// AdminRow is one order as shown in the back office. Orders have no local
// identity: the provider session is the system of record, so the session id
// doubles as the order id.
type AdminRow struct {
	OrderID               string `json:"orderId"`
	CreatedAt             string `json:"createdAt"`
	CapacityLabel         string `json:"capacityLabel"`
	TagCapacity           int    `json:"tagCapacity"`
	SelectedTags          string `json:"selectedTags"`
	TotalAmount           int64  `json:"totalAmount"`
	Currency              string `json:"currency"`
	StripePaymentIntentID string `json:"stripePaymentIntentId"`
	StripeChargeID        string `json:"stripeChargeId"`
	PaymentStatus         string `json:"paymentStatus"`
	RefundStatus          string `json:"refundStatus"`
}

// AdminHandler provides administrative order inspection endpoints.
type AdminHandler struct {
	Provider payment.Provider
	Secret   string
	PageSize int
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize > 0 {
		return h.PageSize
	}
	return maxListedSessions
}

// List returns recent orders, optionally filtered by the q parameter: a
// session id is looked up directly, anything else matches on customer email
// or payment intent id.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil || h.Secret == "" {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "admin handler not configured", nil)
		return
	}
	provided := r.Header.Get("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.Secret)) != 1 {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin secret", nil)
		return
	}

	limit := common.AtoiDefault(r.URL.Query().Get("limit"), h.pageSize())
	if limit < 1 || limit > h.pageSize() {
		limit = h.pageSize()
	}

	sessions, err := h.resolve(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), int64(limit))
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "failed to load sessions", nil)
		return
	}

	rows := make([]AdminRow, 0, len(sessions))
	for _, sess := range sessions {
		rows = append(rows, toAdminRow(sess))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *AdminHandler) resolve(ctx context.Context, query string, limit int64) ([]payment.Session, error) {
	if strings.HasPrefix(query, "cs_") {
		sess, err := h.Provider.RetrieveSession(ctx, query)
		if err != nil {
			return nil, err
		}
		return []payment.Session{sess}, nil
	}
	sessions, err := h.Provider.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return sessions, nil
	}
	// Session volume is small; filtering the recent page in memory replaces a
	// search index.
	needle := strings.ToLower(query)
	matched := sessions[:0]
	for _, sess := range sessions {
		if strings.Contains(strings.ToLower(sess.CustomerEmail), needle) || sess.PaymentIntentID == query {
			matched = append(matched, sess)
		}
	}
	return matched, nil
}

func toAdminRow(sess payment.Session) AdminRow {
	capacity, _ := strconv.Atoi(sess.Metadata["tagCapacity"])
	selectedTags := sess.Metadata["selectedTags"]
	if selectedTags == "" {
		selectedTags = "{}"
	}

	refundStatus := "none"
	switch {
	case sess.Refunded:
		refundStatus = "full"
	case sess.AmountRefunded > 0:
		refundStatus = "partial"
	}

	return AdminRow{
		OrderID:               sess.ID,
		CreatedAt:             time.Unix(sess.CreatedAt, 0).UTC().Format(time.RFC3339),
		CapacityLabel:         pricing.CapacityLabel(capacity),
		TagCapacity:           capacity,
		SelectedTags:          selectedTags,
		TotalAmount:           sess.AmountTotal,
		Currency:              sess.Currency,
		StripePaymentIntentID: sess.PaymentIntentID,
		StripeChargeID:        sess.ChargeID,
		PaymentStatus:         sess.PaymentStatus,
		RefundStatus:          refundStatus,
	}
}
