package scanner

import (
	"context"
	"fmt"
	"sync"
)

// Manager guards the single active scan session per process. The factory is
// called for every start so each session gets fresh dedup state and timers.
type Manager struct {
	mu      sync.Mutex
	current *Session
	factory func() *Session
}

func NewManager(factory func() *Session) *Manager {
	return &Manager{factory: factory}
}

// Start creates and starts a new session. Only one session may be active.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, fmt.Errorf("a scan session is already active")
	}

	session := m.factory()
	if err := session.Start(ctx); err != nil {
		session.Stop()
		return nil, err
	}
	m.current = session
	return session, nil
}

// Stop tears down the active session, if any.
func (m *Manager) Stop() error {
	m.mu.Lock()
	session := m.current
	m.current = nil
	m.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no active scan session")
	}
	session.Stop()
	return nil
}

// Current returns the active session or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StopAll is called on process shutdown.
func (m *Manager) StopAll() {
	_ = m.Stop()
}
