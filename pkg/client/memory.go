package client

import "sync"

// MemoryCredentials is a CredentialStore that keeps the token in memory
// only. Headless tools use it when the session should not outlive the
// process.
type MemoryCredentials struct {
	mu       sync.RWMutex
	token    string
	hasToken bool
}

// NewMemoryCredentials creates a store, optionally seeded with a token
func NewMemoryCredentials(token string) *MemoryCredentials {
	return &MemoryCredentials{token: token, hasToken: token != ""}
}

func (m *MemoryCredentials) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.hasToken
}

func (m *MemoryCredentials) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.hasToken = token, true
	return nil
}

func (m *MemoryCredentials) RemoveToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.hasToken = "", false
	return nil
}
