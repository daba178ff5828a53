package worker_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/email"
	"github.com/radugrosu/zero2prod/internal/ratelimiter"
	"github.com/radugrosu/zero2prod/internal/repository"
	"github.com/radugrosu/zero2prod/internal/worker"
)

// scriptedSender pops one response per recipient from a per-recipient script;
// once a script is exhausted, further sends succeed.
type scriptedSender struct {
	mu       sync.Mutex
	scripts  map[string][]error
	attempts map[string]int
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{
		scripts:  make(map[string][]error),
		attempts: make(map[string]int),
	}
}

func (s *scriptedSender) script(recipient string, errs ...error) {
	s.scripts[recipient] = errs
}

func (s *scriptedSender) Send(_ context.Context, to domain.SubscriberEmail, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[to.String()]++
	script := s.scripts[to.String()]
	if len(script) == 0 {
		return nil
	}
	next := script[0]
	s.scripts[to.String()] = script[1:]
	return next
}

func (s *scriptedSender) attemptCount(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[recipient]
}

var (
	transientErr = &email.Error{StatusCode: http.StatusInternalServerError, Message: "busy"}
	permanentErr = &email.Error{StatusCode: http.StatusUnprocessableEntity, Message: "rejected", Permanent: true}
)

func newWorker(repo *repository.MockDeliveryRepository, sender email.Sender) *worker.Worker {
	return worker.NewWorker(
		0, repo, sender, ratelimiter.New(1000),
		time.Millisecond, time.Millisecond,
		zap.NewNop(), worker.Hooks{},
	)
}

func enqueueIssue(t *testing.T, repo *repository.MockDeliveryRepository, subscribers ...string) {
	t.Helper()
	repo.Subscribers = subscribers
	issue := domain.NewIssue(domain.PublishRequest{
		Title: "Hi", TextContent: "body", HTMLContent: "<p>body</p>",
	})
	if _, err := repo.EnqueueIssue(context.Background(), uuid.New(), "k1", issue); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestWorker_RunOnce_QueueEmpty(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	w := newWorker(repo, newScriptedSender())

	outcome, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != worker.OutcomeQueueEmpty {
		t.Fatalf("expected OutcomeQueueEmpty, got %v", outcome)
	}
}

func TestWorker_RunOnce_DeliversAndDeletes(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	enqueueIssue(t, repo, "a@example.com")
	w := newWorker(repo, newScriptedSender())

	outcome, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != worker.OutcomeTaskCompleted {
		t.Fatalf("expected OutcomeTaskCompleted, got %v", outcome)
	}
	if remaining := len(repo.Tasks()); remaining != 0 {
		t.Fatalf("expected task to be deleted, %d remain", remaining)
	}
}

func TestWorker_RunOnce_TransientTwiceThenSucceeds(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	enqueueIssue(t, repo, "a@example.com")

	sender := newScriptedSender()
	sender.script("a@example.com", transientErr, transientErr)
	w := newWorker(repo, sender)
	ctx := context.Background()

	for attempt := 1; attempt <= 2; attempt++ {
		outcome, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if outcome != worker.OutcomeTaskRetried {
			t.Fatalf("attempt %d: expected OutcomeTaskRetried, got %v", attempt, outcome)
		}
		tasks := repo.Tasks()
		if len(tasks) != 1 {
			t.Fatalf("attempt %d: task must stay queued, %d remain", attempt, len(tasks))
		}
		if tasks[0].Retries != attempt {
			t.Fatalf("attempt %d: expected retry counter %d, got %d", attempt, attempt, tasks[0].Retries)
		}
	}

	outcome, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if outcome != worker.OutcomeTaskCompleted {
		t.Fatalf("expected OutcomeTaskCompleted on third attempt, got %v", outcome)
	}
	if len(repo.Tasks()) != 0 {
		t.Fatal("expected task deleted after successful delivery")
	}
	if got := sender.attemptCount("a@example.com"); got != 3 {
		t.Fatalf("expected 3 transport attempts, got %d", got)
	}
}

func TestWorker_RunOnce_PermanentFailureSkips(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	enqueueIssue(t, repo, "a@example.com")

	sender := newScriptedSender()
	sender.script("a@example.com", permanentErr)
	w := newWorker(repo, sender)

	outcome, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != worker.OutcomeTaskSkipped {
		t.Fatalf("expected OutcomeTaskSkipped, got %v", outcome)
	}
	if len(repo.Tasks()) != 0 {
		t.Fatal("permanently failed task must be deleted, never retried")
	}
}

func TestWorker_IsolatesMalformedRecipient(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	enqueueIssue(t, repo, "a@example.com", "b@example.com")
	// Stored addresses are validated at send time too: inject a record that
	// slipped past enqueue-time validation.
	issue := domain.NewIssue(domain.PublishRequest{
		Title: "Hi", TextContent: "body", HTMLContent: "<p>body</p>",
	})
	repo.InjectTask(domain.DeliveryTask{
		IssueID:         issue.ID,
		SubscriberEmail: "not-an-email",
		EnqueuedAt:      time.Now().UTC(),
	}, issue)

	sender := newScriptedSender()
	w := newWorker(repo, sender)
	ctx := context.Background()

	var completed, skipped int
	for {
		outcome, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome == worker.OutcomeQueueEmpty {
			break
		}
		switch outcome {
		case worker.OutcomeTaskCompleted:
			completed++
		case worker.OutcomeTaskSkipped:
			skipped++
		}
	}
	if completed != 2 || skipped != 1 {
		t.Fatalf("expected 2 deliveries and 1 permanent skip, got %d and %d", completed, skipped)
	}
	if got := sender.attemptCount("not-an-email"); got != 0 {
		t.Fatalf("malformed recipient must never reach the transport, got %d attempts", got)
	}
	if len(repo.Tasks()) != 0 {
		t.Fatal("one malformed recipient must not abort the batch")
	}
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	w := newWorker(repo, newScriptedSender())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_ConcurrentWorkersNeverShareATask(t *testing.T) {
	repo := repository.NewMockDeliveryRepository()
	enqueueIssue(t, repo,
		"a@example.com", "b@example.com", "c@example.com",
		"d@example.com", "e@example.com",
	)
	sender := newScriptedSender()

	var wg sync.WaitGroup
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := newWorker(repo, sender)
			for {
				outcome, err := w.RunOnce(ctx)
				if err != nil {
					t.Errorf("worker %d: %v", id, err)
					return
				}
				if outcome == worker.OutcomeQueueEmpty {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if len(repo.Tasks()) != 0 {
		t.Fatalf("expected empty queue, %d tasks remain", len(repo.Tasks()))
	}
	for _, r := range []string{"a", "b", "c", "d", "e"} {
		if got := sender.attemptCount(r + "@example.com"); got != 1 {
			t.Fatalf("recipient %s attempted %d times, want exactly 1", r, got)
		}
	}
}
