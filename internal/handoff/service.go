package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/events"
	"github.com/ifoundit/checkout-api/internal/lock"
	"github.com/ifoundit/checkout-api/internal/obs"
	"github.com/ifoundit/checkout-api/internal/payment"
)

const lockTTL = 10 * time.Second

// Payload is the claim token's content. Capacity and selection are carried as
// the raw metadata strings written at session-creation time; the claim
// application re-derives the priced order from them.
type Payload struct {
	StripeSessionID string `json:"stripeSessionId"`
	CustomerEmail   string `json:"customerEmail"`
	TagCapacity     string `json:"tagCapacity"`
	SelectedTags    string `json:"selectedTags"`
	FreeHaloApplied string `json:"freeHaloApplied,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

// Output carries the redirect URL into the main application.
type Output struct {
	HandoffURL string `json:"handoffUrl"`
}

// Service exchanges a completed payment session for an encrypted claim URL.
type Service struct {
	Provider   payment.Provider
	Secret     string
	MainAppURL string
	Events     *events.Bus
	Locks      *lock.Locker
	Now        func() time.Time
}

// Exchange verifies the session with the provider, requires a confirmed
// payment and returns the claim redirect URL with the encrypted payload.
// Concurrent exchanges for the same session serialize behind a Redis lock
// when one is configured, so success-page reloads issue one token at a time.
func (s *Service) Exchange(ctx context.Context, sessionID string) (Output, error) {
	if s == nil || s.Provider == nil || s.Secret == "" {
		return Output{}, errors.New("handoff service not configured")
	}
	if s.Locks != nil {
		var out Output
		err := s.Locks.WithLock(ctx, "handoff:"+sessionID, lockTTL, func(ctx context.Context) error {
			var innerErr error
			out, innerErr = s.exchange(ctx, sessionID)
			return innerErr
		})
		return out, err
	}
	return s.exchange(ctx, sessionID)
}

func (s *Service) exchange(ctx context.Context, sessionID string) (Output, error) {
	ctx, span := otel.Tracer("handoff.Service").Start(ctx, "Service.Exchange")
	defer span.End()

	sess, err := s.Provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.count("retrieve_error")
		return Output{}, common.NewAppError("SESSION_NOT_FOUND", "failed to retrieve payment session", http.StatusBadGateway, err)
	}
	if !sess.Paid() {
		s.count("not_paid")
		return Output{}, common.NewAppError("PAYMENT_NOT_CONFIRMED", "payment not confirmed", http.StatusConflict, nil)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	payload := Payload{
		StripeSessionID: sess.ID,
		CustomerEmail:   sess.CustomerEmail,
		TagCapacity:     sess.Metadata["tagCapacity"],
		SelectedTags:    sess.Metadata["selectedTags"],
		FreeHaloApplied: sess.Metadata["freeHaloApplied"],
		Timestamp:       now().UnixMilli(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Output{}, fmt.Errorf("encode handoff payload: %w", err)
	}
	token, err := Encrypt(s.Secret, encoded)
	if err != nil {
		s.count("encrypt_error")
		return Output{}, err
	}

	span.SetAttributes(attribute.String("handoff.session_id", sess.ID))
	s.count("ok")
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderReconciled, sess.ID, map[string]any{
			"paymentStatus": sess.PaymentStatus,
			"amountTotal":   sess.AmountTotal,
			"currency":      sess.Currency,
		})
		_, _ = s.Events.Emit(ctx, events.TopicHandoffIssued, sess.ID, nil)
	}
	return Output{HandoffURL: fmt.Sprintf("%s?token=%s", s.MainAppURL, token)}, nil
}

func (s *Service) count(result string) {
	if obs.HandoffTotal == nil {
		return
	}
	obs.HandoffTotal.WithLabelValues(result).Inc()
}
