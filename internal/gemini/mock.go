package gemini

import (
	"context"
	"sync"
)

// MockClient for testing
type MockClient struct {
	Response string
	Error    error

	mu      sync.Mutex
	prompts []string
	closed  bool
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, m.Error
}

// Prompts returns every prompt seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
