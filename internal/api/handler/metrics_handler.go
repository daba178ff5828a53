package handler

import (
	"net/http"

	"github.com/radugrosu/zero2prod/internal/repository"
)

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	repo repository.DeliveryRepository
}

func NewMetricsHandler(repo repository.DeliveryRepository) *MetricsHandler {
	return &MetricsHandler{repo: repo}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Delivery queue depth snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	depth, err := h.repo.QueueDepth(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue depth")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": depth,
	})
}
