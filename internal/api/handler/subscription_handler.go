package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/radugrosu/zero2prod/internal/api/middleware"
	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/service"
)

// SubscriptionHandler handles subscription intake and confirmation.
type SubscriptionHandler struct {
	svc    *service.SubscriptionService
	logger *zap.Logger
}

func NewSubscriptionHandler(svc *service.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, logger: logger}
}

// Subscribe handles POST /subscriptions
//
// @Summary     Subscribe to the newsletter
// @Tags        subscriptions
// @Accept      json
// @Produce     json
// @Param       body  body      domain.SubscribeRequest  true  "Subscriber details"
// @Success     201   {object}  domain.Subscriber
// @Failure     409   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Router      /subscriptions [post]
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), req)
	if err != nil {
		h.logger.Warn("subscribe failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// Confirm handles GET /subscriptions/confirm
//
// @Summary  Confirm a subscription via emailed token
// @Tags     subscriptions
// @Param    subscription_token  query  string  true  "Confirmation token"
// @Success  200
// @Failure  404  {object}  map[string]string
// @Router   /subscriptions/confirm [get]
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if err := h.svc.Confirm(r.Context(), token); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}
