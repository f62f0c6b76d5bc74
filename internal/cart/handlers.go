package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ifoundit/checkout-api/internal/common"
	"github.com/ifoundit/checkout-api/internal/obs"
	"github.com/ifoundit/checkout-api/internal/pricing"
)

// Handler exposes the cart session endpoints.
type Handler struct {
	Store *Store
}

type cartView struct {
	CartID string              `json:"cartId"`
	State  pricing.CartState   `json:"state"`
	Order  pricing.PricedOrder `json:"order"`
}

type capacityRequest struct {
	Tier int `json:"tier"`
}

type tagAdjustRequest struct {
	Delta int `json:"delta"`
}

type addonRequest struct {
	Tier int `json:"tier"`
}

// Create opens a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	id, ctrl := h.Store.Create()
	h.render(w, http.StatusCreated, id, ctrl, "create")
}

// Get returns the cart state together with its recomputed priced order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, id, ctrl, "")
}

// SetCapacity switches the cart's capacity tier.
func (h *Handler) SetCapacity(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req capacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := ctrl.SetCapacity(req.Tier); err != nil {
		writeCartError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, ctrl, "set_capacity")
}

// AdjustTag increments or decrements one tag type's quantity.
func (h *Handler) AdjustTag(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req tagAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := ctrl.AdjustTagQuantity(chi.URLParam(r, "tagId"), req.Delta); err != nil {
		writeCartError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, ctrl, "adjust_tag")
}

// SetAddon selects a tier on one bolt-on axis.
func (h *Handler) SetAddon(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req addonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	axis := pricing.AddonAxis(chi.URLParam(r, "axis"))
	if err := ctrl.SetAddonTier(axis, req.Tier); err != nil {
		writeCartError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, ctrl, "set_addon")
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *Controller, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return "", nil, false
	}
	id := chi.URLParam(r, "id")
	ctrl, err := h.Store.Get(id)
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return "", nil, false
	}
	return id, ctrl, true
}

func (h *Handler) render(w http.ResponseWriter, status int, id string, ctrl *Controller, op string) {
	order, err := ctrl.Order()
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
		return
	}
	if op != "" && obs.CartMutationTotal != nil {
		obs.CartMutationTotal.WithLabelValues(op).Inc()
	}
	common.JSON(w, status, map[string]any{"data": cartView{CartID: id, State: ctrl.State(), Order: order}})
}

func writeCartError(w http.ResponseWriter, err error) {
	var tierErr *pricing.InvalidTierError
	switch {
	case errors.As(err, &tierErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_TIER", tierErr.Error(), map[string]any{
			"field": tierErr.Field,
			"value": tierErr.Value,
		})
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
