package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/repository"
)

// DepthMonitor periodically samples the delivery queue depth and reports it
// through a callback (wired to a Prometheus gauge in main). The queue table
// is the single source of truth for work remaining, so depth is read from
// the database rather than tracked in memory.
type DepthMonitor struct {
	repo     repository.DeliveryRepository
	interval time.Duration
	report   func(depth int)
	logger   *zap.Logger
}

func NewDepthMonitor(
	repo repository.DeliveryRepository,
	interval time.Duration,
	report func(depth int),
	logger *zap.Logger,
) *DepthMonitor {
	if report == nil {
		report = func(int) {}
	}
	return &DepthMonitor{repo: repo, interval: interval, report: report, logger: logger}
}

// Run ticks every interval and samples the queue depth.
// Stops cleanly when ctx is cancelled.
func (dm *DepthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.interval)
	defer ticker.Stop()

	dm.logger.Info("queue depth monitor started", zap.Duration("interval", dm.interval))

	for {
		select {
		case <-ctx.Done():
			dm.logger.Info("queue depth monitor stopping")
			return
		case <-ticker.C:
			depth, err := dm.repo.QueueDepth(ctx)
			if err != nil {
				dm.logger.Error("queue depth sample failed", zap.Error(err))
				continue
			}
			dm.report(depth)
		}
	}
}
