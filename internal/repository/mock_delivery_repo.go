package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radugrosu/zero2prod/internal/domain"
)

// MockDeliveryRepository is a hand-written, in-memory implementation of
// DeliveryRepository used in unit tests. No mock-generation library needed.
//
// Confirmed subscriber emails are seeded through the Subscribers field
// before calling EnqueueIssue.
type MockDeliveryRepository struct {
	mu          sync.Mutex
	Subscribers []string

	idempotency map[idemKey]*idemRecord
	issues      map[uuid.UUID]*domain.NewsletterIssue
	tasks       []*mockTask

	// Optional error overrides — set in tests to simulate failure paths.
	EnqueueErr      error
	SaveResponseErr error
	ClaimErr        error
}

type idemKey struct {
	owner uuid.UUID
	key   string
}

type idemRecord struct {
	saved *domain.StoredResponse
}

type mockTask struct {
	task    domain.DeliveryTask
	claimed bool
}

func NewMockDeliveryRepository() *MockDeliveryRepository {
	return &MockDeliveryRepository{
		idempotency: make(map[idemKey]*idemRecord),
		issues:      make(map[uuid.UUID]*domain.NewsletterIssue),
	}
}

func (m *MockDeliveryRepository) EnqueueIssue(_ context.Context, ownerID uuid.UUID, key string, issue *domain.NewsletterIssue) (*EnqueueOutcome, error) {
	if m.EnqueueErr != nil {
		return nil, m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := idemKey{owner: ownerID, key: key}
	if rec, ok := m.idempotency[k]; ok {
		if rec.saved == nil {
			return nil, domain.ErrSubmissionInFlight
		}
		return &EnqueueOutcome{Started: false, Response: rec.saved}, nil
	}
	m.idempotency[k] = &idemRecord{}

	clone := *issue
	m.issues[issue.ID] = &clone

	outcome := &EnqueueOutcome{Started: true}
	seen := make(map[string]bool)
	for _, email := range m.Subscribers {
		if _, err := domain.ParseEmail(email); err != nil {
			outcome.SkippedInvalid++
			continue
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		m.tasks = append(m.tasks, &mockTask{task: domain.DeliveryTask{
			IssueID:         issue.ID,
			SubscriberEmail: email,
			EnqueuedAt:      time.Now().UTC(),
		}})
		outcome.Enqueued++
	}
	return outcome, nil
}

func (m *MockDeliveryRepository) SaveResponse(_ context.Context, ownerID uuid.UUID, key string, resp *domain.StoredResponse) error {
	if m.SaveResponseErr != nil {
		return m.SaveResponseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.idempotency[idemKey{owner: ownerID, key: key}]
	if !ok {
		return domain.ErrNotFound
	}
	rec.saved = resp
	return nil
}

func (m *MockDeliveryRepository) ClaimTask(_ context.Context) (TaskClaim, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.claimed {
			continue
		}
		t.claimed = true
		return &mockTaskClaim{repo: m, entry: t, issue: m.issues[t.task.IssueID]}, nil
	}
	return nil, domain.ErrQueueEmpty
}

func (m *MockDeliveryRepository) QueueDepth(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks), nil
}

// InjectTask appends a queue row directly, bypassing enqueue-time email
// validation. Used in tests to simulate malformed historical records that
// must be handled at send time.
func (m *MockDeliveryRepository) InjectTask(task domain.DeliveryTask, issue *domain.NewsletterIssue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.ID] = issue
	m.tasks = append(m.tasks, &mockTask{task: task})
}

// Tasks returns a snapshot of the remaining queue rows, claimed or not.
func (m *MockDeliveryRepository) Tasks() []domain.DeliveryTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DeliveryTask, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.task
	}
	return out
}

// Issues returns the number of stored newsletter issues.
func (m *MockDeliveryRepository) Issues() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issues)
}

type mockTaskClaim struct {
	repo  *MockDeliveryRepository
	entry *mockTask
	issue *domain.NewsletterIssue
}

func (c *mockTaskClaim) Task() domain.DeliveryTask      { return c.entry.task }
func (c *mockTaskClaim) Issue() *domain.NewsletterIssue { return c.issue }

func (c *mockTaskClaim) Complete(context.Context) error { return c.remove() }
func (c *mockTaskClaim) Skip(context.Context) error     { return c.remove() }

func (c *mockTaskClaim) Retry(context.Context) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.entry.task.Retries++
	c.entry.claimed = false
	return nil
}

func (c *mockTaskClaim) Release(context.Context) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.entry.claimed = false
	return nil
}

func (c *mockTaskClaim) remove() error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	for i, t := range c.repo.tasks {
		if t == c.entry {
			c.repo.tasks = append(c.repo.tasks[:i], c.repo.tasks[i+1:]...)
			break
		}
	}
	return nil
}
