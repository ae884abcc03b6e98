package user

import (
	"context"
	"sync"

	"github.com/mflix-org/marquee/events"
)

// MockEventsNotifier records the emails it was told about and answers with
// the queued responses, nil once they run out.
type MockEventsNotifier struct {
	mu                         sync.Mutex
	Created                    []string
	Deleted                    []string
	NotifyUserCreatedResponses []error
	NotifyUserDeletedResponses []error
}

func NewMockEventsNotifier() *MockEventsNotifier {
	return &MockEventsNotifier{}
}

func (m *MockEventsNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = nil
	m.Deleted = nil
	m.NotifyUserCreatedResponses = nil
	m.NotifyUserDeletedResponses = nil
}

func (m *MockEventsNotifier) NotifyUserCreated(ctx context.Context, email, name string, isAdmin bool) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, email)
	if len(m.NotifyUserCreatedResponses) > 0 {
		err, m.NotifyUserCreatedResponses = m.NotifyUserCreatedResponses[0], m.NotifyUserCreatedResponses[1:]
	}
	return err
}

func (m *MockEventsNotifier) NotifyUserDeleted(ctx context.Context, email string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, email)
	if len(m.NotifyUserDeletedResponses) > 0 {
		err, m.NotifyUserDeletedResponses = m.NotifyUserDeletedResponses[0], m.NotifyUserDeletedResponses[1:]
	}
	return err
}

func (m *MockEventsNotifier) Close() error { return nil }

var _ events.Notifier = &MockEventsNotifier{}
