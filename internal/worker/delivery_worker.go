package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/email"
	"github.com/radugrosu/zero2prod/internal/ratelimiter"
	"github.com/radugrosu/zero2prod/internal/repository"
)

// Outcome is the result of a single worker iteration.
type Outcome int

const (
	// OutcomeTaskCompleted: the email was sent and the task row deleted.
	OutcomeTaskCompleted Outcome = iota
	// OutcomeTaskSkipped: permanent failure, the task row was deleted.
	OutcomeTaskSkipped
	// OutcomeTaskRetried: transient failure, the row stays reclaimable.
	OutcomeTaskRetried
	// OutcomeQueueEmpty: no unclaimed task was found.
	OutcomeQueueEmpty
)

// retryEscalationThreshold is the attempt count after which transient
// failures are logged at error level instead of warn, so a recipient that
// keeps failing surfaces in operational alerting.
const retryEscalationThreshold = 5

// Worker is a single delivery loop: it claims one pending task at a time
// with a row lock, sends the issue to the recipient, and finalises the task
// according to the outcome. Any number of workers can run concurrently
// against the same queue table; the database lock is the only coordination.
type Worker struct {
	id      int
	repo    repository.DeliveryRepository
	sender  email.Sender
	limiter *ratelimiter.SendLimiter

	pollInterval time.Duration
	errorBackoff time.Duration
	logger       *zap.Logger

	// Hooks for metrics — injected by the pool so the worker stays metrics-agnostic.
	onDelivered func(latency time.Duration)
	onRetried   func()
	onSkipped   func()
}

// NewWorker constructs a worker. The hook functions are optional (nil = no-op).
func NewWorker(
	id int,
	repo repository.DeliveryRepository,
	sender email.Sender,
	limiter *ratelimiter.SendLimiter,
	pollInterval time.Duration,
	errorBackoff time.Duration,
	logger *zap.Logger,
	hooks Hooks,
) *Worker {
	if hooks.OnDelivered == nil {
		hooks.OnDelivered = func(time.Duration) {}
	}
	if hooks.OnRetried == nil {
		hooks.OnRetried = func() {}
	}
	if hooks.OnSkipped == nil {
		hooks.OnSkipped = func() {}
	}
	return &Worker{
		id: id, repo: repo, sender: sender, limiter: limiter,
		pollInterval: pollInterval, errorBackoff: errorBackoff, logger: logger,
		onDelivered: hooks.OnDelivered,
		onRetried:   hooks.OnRetried,
		onSkipped:   hooks.OnSkipped,
	}
}

// Run blocks until ctx is cancelled. Each iteration is an independently
// committed unit, so stopping between iterations never corrupts state.
// The worker sleeps pollInterval after draining the queue and errorBackoff
// after an infrastructure error, instead of spinning.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("delivery worker started", zap.Int("id", w.id))
	for {
		outcome, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		}

		var pause time.Duration
		switch {
		case err != nil:
			w.logger.Error("delivery iteration failed", zap.Int("id", w.id), zap.Error(err))
			pause = w.errorBackoff
		case outcome == OutcomeQueueEmpty:
			pause = w.pollInterval
		default:
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		case <-time.After(pause):
		}
	}
}

// RunOnce claims and processes at most one delivery task.
// A non-nil error means a transient infrastructure problem (store or claim
// finalisation); the task involved, if any, stays reclaimable.
func (w *Worker) RunOnce(ctx context.Context) (Outcome, error) {
	claim, err := w.repo.ClaimTask(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrQueueEmpty) {
			return OutcomeQueueEmpty, nil
		}
		return 0, err
	}

	task := claim.Task()
	issue := claim.Issue()
	log := w.logger.With(
		zap.String("newsletter_issue_id", task.IssueID.String()),
		zap.String("recipient", task.SubscriberEmail),
	)

	recipient, err := domain.ParseEmail(task.SubscriberEmail)
	if err != nil {
		// A stored address that fails validation will never send: delete
		// the task so it does not clog the queue forever.
		log.Warn("skipping task with malformed stored email")
		if err := claim.Skip(ctx); err != nil {
			return 0, err
		}
		w.onSkipped()
		return OutcomeTaskSkipped, nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting — hand the task back untouched.
		if relErr := claim.Release(context.WithoutCancel(ctx)); relErr != nil {
			log.Warn("failed to release claimed task", zap.Error(relErr))
		}
		return 0, err
	}

	start := time.Now()
	sendErr := w.sender.Send(ctx, recipient, issue.Title, issue.HTMLContent, issue.TextContent)
	if sendErr == nil {
		if err := claim.Complete(ctx); err != nil {
			return 0, err
		}
		w.onDelivered(time.Since(start))
		log.Info("newsletter issue delivered", zap.Duration("latency", time.Since(start)))
		return OutcomeTaskCompleted, nil
	}

	if email.IsPermanent(sendErr) {
		log.Error("permanently skipping recipient", zap.Error(sendErr))
		if err := claim.Skip(ctx); err != nil {
			return 0, err
		}
		w.onSkipped()
		return OutcomeTaskSkipped, nil
	}

	attempt := task.Retries + 1
	if attempt >= retryEscalationThreshold {
		log.Error("transient delivery failure, task stays queued",
			zap.Error(sendErr), zap.Int("attempt", attempt))
	} else {
		log.Warn("transient delivery failure, task stays queued",
			zap.Error(sendErr), zap.Int("attempt", attempt))
	}
	if err := claim.Retry(ctx); err != nil {
		return 0, err
	}
	w.onRetried()
	return OutcomeTaskRetried, nil
}
