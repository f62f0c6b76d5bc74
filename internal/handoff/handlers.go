package handoff

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ifoundit/checkout-api/internal/common"
)

// Handler exposes the post-payment handoff endpoint.
type Handler struct {
	Svc *Service
}

type exchangeRequest struct {
	SessionID string `json:"sessionId"`
}

// Exchange turns a completed session id into a claim redirect URL.
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "handoff service not configured", nil)
		return
	}
	var payload exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.SessionID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sessionId is required", nil)
		return
	}
	out, err := h.Svc.Exchange(r.Context(), payload.SessionID)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
