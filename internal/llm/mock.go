package llm

import (
	"context"
	"strings"
	"sync"
)

// MockRule maps a prompt substring to a canned reply.
type MockRule struct {
	Contains string
	Reply    string
}

// MockClient is a scripted oracle for tests and offline runs. The first
// rule whose substring appears in the prompt wins; otherwise Default (and
// Err, if set) is returned. Prompts are recorded for assertions.
type MockClient struct {
	Rules   []MockRule
	Default string
	Err     error

	mu      sync.Mutex
	prompts []string
}

func (m *MockClient) Invoke(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	for _, r := range m.Rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Reply, nil
		}
	}
	return m.Default, nil
}

// Prompts returns a copy of every prompt seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount reports how many times the oracle was invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
