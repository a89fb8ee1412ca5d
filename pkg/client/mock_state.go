package client

import (
	"sync"
)

// MockCredentials is a CredentialStore for tests: it records every token
// stored and can be told to fail writes
type MockCredentials struct {
	MemoryCredentials

	mu        sync.Mutex
	history   []string
	setErr    error
	removeErr error
}

// NewMockCredentials creates a mock store, optionally seeded with a token
func NewMockCredentials(token string) *MockCredentials {
	return &MockCredentials{MemoryCredentials: MemoryCredentials{token: token, hasToken: token != ""}}
}

// SetToken records token and stores it unless a set error is configured
func (m *MockCredentials) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.history = append(m.history, token)
	return m.MemoryCredentials.SetToken(token)
}

// RemoveToken clears the token unless a remove error is configured
func (m *MockCredentials) RemoveToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	return m.MemoryCredentials.RemoveToken()
}

// History returns a copy of every token set so far, oldest first
func (m *MockCredentials) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// SetSetError makes subsequent SetToken calls fail
func (m *MockCredentials) SetSetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// SetRemoveError makes subsequent RemoveToken calls fail
func (m *MockCredentials) SetRemoveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeErr = err
}
