package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/radugrosu/zero2prod/internal/api/middleware"
	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/service"
)

// NewsletterHandler handles the admin publish endpoint.
type NewsletterHandler struct {
	svc    *service.PublishService
	logger *zap.Logger
}

func NewNewsletterHandler(svc *service.PublishService, logger *zap.Logger) *NewsletterHandler {
	return &NewsletterHandler{svc: svc, logger: logger}
}

// Publish handles POST /admin/newsletters
//
// @Summary     Submit a newsletter issue for delivery
// @Tags        newsletters
// @Accept      json
// @Produce     json
// @Param       X-Idempotency-Key  header    string                true  "Idempotency key"
// @Param       body               body      domain.PublishRequest true  "Issue payload"
// @Success     202                {object}  map[string]string
// @Failure     400                {object}  map[string]string
// @Failure     409                {object}  map[string]string
// @Failure     422                {object}  map[string]string
// @Router      /admin/newsletters [post]
func (h *NewsletterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := apimw.GetOwnerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing authenticated owner")
		return
	}

	var req domain.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := r.Header.Get("X-Idempotency-Key")
	resp, duplicate, err := h.svc.Publish(r.Context(), ownerID, key, req)
	if err != nil {
		h.logger.Warn("publish newsletter failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	if duplicate {
		h.logger.Info("replayed saved response for duplicate submission",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		)
	}

	// Relay the stored response verbatim so retried submissions observe a
	// byte-identical reply.
	for _, hp := range resp.Headers {
		w.Header().Set(hp.Name, hp.Value)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body) //nolint:errcheck
}
