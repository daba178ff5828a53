package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/config"
	"github.com/radugrosu/zero2prod/internal/email"
	"github.com/radugrosu/zero2prod/internal/ratelimiter"
	"github.com/radugrosu/zero2prod/internal/repository"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the worker constructor signature clean.
type Hooks struct {
	OnDelivered func(latency time.Duration)
	OnRetried   func()
	OnSkipped   func()
}

// Pool manages the lifecycle of all delivery workers.
// Workers share no in-memory state; the queue table's row locks are the
// only coordination between them, so the pool is free to run any number.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates cfg.DeliveryWorkers identical workers sharing one send
// limiter and one repository.
func NewPool(
	cfg *config.Config,
	repo repository.DeliveryRepository,
	sender email.Sender,
	limiter *ratelimiter.SendLimiter,
	logger *zap.Logger,
	hooks Hooks,
) *Pool {
	workers := make([]*Worker, cfg.DeliveryWorkers)
	for i := range workers {
		workers[i] = NewWorker(
			i, repo, sender, limiter,
			cfg.PollInterval, cfg.ErrorBackoff,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context so in-flight sends finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
