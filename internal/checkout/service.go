package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ifoundit/checkout-api/internal/cart"
	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/events"
	"github.com/ifoundit/checkout-api/internal/obs"
	"github.com/ifoundit/checkout-api/internal/payment"
	"github.com/ifoundit/checkout-api/internal/pricing"
)

// Input is the create-session request body.
type Input struct {
	CartID string `json:"cartId" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// Output is returned after a session has been opened with the provider.
type Output struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Service opens hosted payment sessions for carts.
type Service struct {
	Carts      *cart.Store
	Provider   payment.Provider
	Currency   string
	SuccessURL string
	CancelURL  string
	Events     *events.Bus
}

// Create validates the cart's submission gate, builds the session payload and
// opens a session with the payment provider. The session metadata carries the
// raw selection map so the order can be reconstructed after payment without
// any local persistence.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Carts == nil || s.Provider == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "Service.Create")
	defer span.End()

	ctrl, err := s.Carts.Get(in.CartID)
	if err != nil {
		s.count("cart_not_found")
		return Output{}, common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
	}
	state := ctrl.State()

	effective := pricing.EffectiveSelection(state.SelectedTags)
	effectiveQty := 0
	for _, qty := range effective {
		if qty > 0 {
			effectiveQty += qty
		}
	}
	if effectiveQty < 1 || effectiveQty > state.TagCapacity {
		s.count("capacity_exceeded")
		return Output{}, common.NewAppError(
			"CAPACITY_EXCEEDED",
			fmt.Sprintf("selection of %d tags exceeds the plan capacity of %d", effectiveQty, state.TagCapacity),
			http.StatusUnprocessableEntity,
			nil,
		)
	}

	order, err := pricing.CalculateTotal(state)
	if err != nil {
		s.count("invalid_state")
		return Output{}, common.NewAppError("INVALID_TIER", err.Error(), http.StatusUnprocessableEntity, err)
	}
	items, err := BuildLineItems(state)
	if err != nil {
		s.count("invalid_state")
		return Output{}, common.NewAppError("INVALID_TIER", err.Error(), http.StatusUnprocessableEntity, err)
	}
	// The payload builder and the engine derive from the same table; a
	// mismatch here is a programming error, not a user error.
	if !PayloadTotal(items).Equal(order.Total) {
		s.count("total_mismatch")
		return Output{}, common.NewAppError("INTERNAL", "line item total does not match order total", http.StatusInternalServerError, nil)
	}

	implicitApplied := explicitQuantity(state.SelectedTags) == 0
	metadata, err := sessionMetadata(state, implicitApplied)
	if err != nil {
		return Output{}, fmt.Errorf("encode session metadata: %w", err)
	}

	sess, err := s.Provider.CreateSession(ctx, payment.SessionRequest{
		Items:         SessionItems(items),
		Currency:      s.Currency,
		CustomerEmail: in.Email,
		SuccessURL:    s.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.CancelURL,
		Metadata:      metadata,
	})
	if err != nil {
		s.count("provider_error")
		return Output{}, common.NewAppError("PAYMENT_SESSION_FAILED", "failed to create payment session", http.StatusBadGateway, err)
	}

	span.SetAttributes(
		attribute.String("checkout.session_id", sess.ID),
		attribute.Int("checkout.tag_capacity", state.TagCapacity),
		attribute.Int("checkout.effective_quantity", effectiveQty),
	)
	s.count("ok")
	if implicitApplied && obs.ImplicitSelectionTotal != nil {
		obs.ImplicitSelectionTotal.Inc()
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicSessionCreated, sess.ID, map[string]any{
			"cartId":      in.CartID,
			"tagCapacity": state.TagCapacity,
			"total":       order.Total,
		})
		if implicitApplied {
			_, _ = s.Events.Emit(ctx, events.TopicImplicitSelection, sess.ID, map[string]any{
				"cartId": in.CartID,
			})
		}
	}
	return Output{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

func sessionMetadata(state pricing.CartState, implicitApplied bool) (map[string]string, error) {
	// selectedTags carries the raw selection, not the effective one; the
	// reconciliation step re-derives the implicit default the same way the
	// engine does.
	rawTags, err := json.Marshal(state.SelectedTags)
	if err != nil {
		return nil, err
	}
	metadata := map[string]string{
		"tagCapacity":  strconv.Itoa(state.TagCapacity),
		"selectedTags": string(rawTags),
	}
	if implicitApplied {
		metadata["freeHaloApplied"] = "true"
	}
	return metadata, nil
}

func (s *Service) count(result string) {
	if obs.CheckoutSessionTotal == nil {
		return
	}
	obs.CheckoutSessionTotal.WithLabelValues("stripe", result).Inc()
}

func explicitQuantity(selected map[string]int) int {
	total := 0
	for _, qty := range selected {
		if qty > 0 {
			total += qty
		}
	}
	return total
}
