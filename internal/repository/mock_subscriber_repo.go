package repository

import (
	"context"
	"sync"

	"github.com/radugrosu/zero2prod/internal/domain"
)

// MockSubscriberRepository is an in-memory SubscriberRepository for tests.
type MockSubscriberRepository struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Subscriber
	byToken map[string]*domain.Subscriber

	CreateErr  error
	ConfirmErr error
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{
		byEmail: make(map[string]*domain.Subscriber),
		byToken: make(map[string]*domain.Subscriber),
	}
}

func (m *MockSubscriberRepository) Create(_ context.Context, sub *domain.Subscriber, token string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[sub.Email]; exists {
		return domain.ErrDuplicateSubscriber
	}
	clone := *sub
	m.byEmail[sub.Email] = &clone
	m.byToken[token] = &clone
	return nil
}

func (m *MockSubscriberRepository) Confirm(_ context.Context, token string) error {
	if m.ConfirmErr != nil {
		return m.ConfirmErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.byToken[token]
	if !ok {
		return domain.ErrUnknownToken
	}
	sub.Status = domain.StatusConfirmed
	return nil
}

// Get returns the stored subscriber for an email, or nil.
func (m *MockSubscriberRepository) Get(email string) *domain.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email]
}
