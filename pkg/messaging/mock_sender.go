package messaging

import (
	"context"
	"sync"
)

// MockSender records every message it is given. Err, when set, is returned
// from SendExecution instead.
type MockSender struct {
	mu       sync.Mutex
	messages []*ExecutionMessage
	closed   bool
	Err      error
}

// NewMockSender creates a new MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// SendExecution records msg.
func (m *MockSender) SendExecution(_ context.Context, msg *ExecutionMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *MockSender) Messages() []*ExecutionMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ExecutionMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Closed reports whether Close was called.
func (m *MockSender) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the sender closed.
func (m *MockSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure MockSender implements ExecutionSender
var _ ExecutionSender = (*MockSender)(nil)
