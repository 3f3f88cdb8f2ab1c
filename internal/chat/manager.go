package chat

import (
	"sync"
	"time"
)

// Manager owns at most one live Session, created lazily on first Open.
type Manager struct {
	responder    Responder
	systemPrompt string
	timeout      time.Duration

	mu      sync.Mutex
	session *Session
}

func NewManager(responder Responder, systemPrompt string, timeout time.Duration) *Manager {
	return &Manager{
		responder:    responder,
		systemPrompt: systemPrompt,
		timeout:      timeout,
	}
}

// Open returns the live session, creating it on first use.
func (m *Manager) Open() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		m.session = NewSession(m.responder, m.systemPrompt, m.timeout)
	}
	return m.session
}

// Current returns the live session without creating one.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session != nil
}

// Discard closes and forgets the live session. The next Open starts a fresh one.
func (m *Manager) Discard() {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s != nil {
		s.Close()
	}
}
