package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	accountEvents   []*AccountUpdateEvent
	txnEvents       []*TransactionEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishAccountUpdate records the event and returns any configured error.
func (m *MockPublisher) PublishAccountUpdate(ctx context.Context, event *AccountUpdateEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.accountEvents = append(m.accountEvents, event)
	return nil
}

// PublishTransaction records the event and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, event *TransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.txnEvents = append(m.txnEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetAccountEvents returns all published account updates (for testing).
func (m *MockPublisher) GetAccountEvents() []*AccountUpdateEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*AccountUpdateEvent, len(m.accountEvents))
	copy(events, m.accountEvents)
	return events
}

// GetTransactionEvents returns all published transaction events (for testing).
func (m *MockPublisher) GetTransactionEvents() []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*TransactionEvent, len(m.txnEvents))
	copy(events, m.txnEvents)
	return events
}

// GetAccountEventsForAddress returns account events for a specific address.
func (m *MockPublisher) GetAccountEventsForAddress(address string) []*AccountUpdateEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*AccountUpdateEvent, 0)
	for _, event := range m.accountEvents {
		if event.Address == address {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountEvents = nil
	m.txnEvents = nil
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
