package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// Message is one payload recorded by MockPublisher
type Message struct {
	Subject string
	Data    []byte
}

// MockPublisher records published payloads in order and can be told to fail.
// It matches the Publish signature of natsclient.Client and is safe for
// concurrent use.
type MockPublisher struct {
	mu       sync.Mutex
	messages []Message
	calls    int
	failures int
	failWith error
}

// NewMockPublisher creates an empty publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// FailNext makes the next n calls return err
func (p *MockPublisher) FailNext(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
	p.failWith = err
}

// Publish records data under subject unless a failure is pending
func (p *MockPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return p.failWith
	}
	p.messages = append(p.messages, Message{Subject: subject, Data: append([]byte(nil), data...)})
	return nil
}

// Messages returns a copy of everything recorded so far
func (p *MockPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Calls returns the number of Publish calls, failed ones included
func (p *MockPublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// WaitForMessages fails t unless count messages are recorded within timeout
func WaitForMessages(t testing.TB, p *MockPublisher, count int, timeout time.Duration) []Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		msgs := p.Messages()
		if len(msgs) >= count {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d messages (got %d)", count, len(msgs))
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}
