package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pein2017/codex-mcp-server/internal/codex"
)

// State holds one multi-turn synchronous conversation with the agent. The
// thread identifier is learned from the first turn's thread.started event
// and reused for every subsequent reply.
type State struct {
	ID         string
	ThreadID   string
	Effective  codex.EffectiveOptions
	StartTime  time.Time
	LastActive time.Time
	Turns      int
	mutex      sync.Mutex
}

// Manager manages synchronous conversation sessions
type Manager struct {
	sessions map[string]*State
	mutex    sync.RWMutex
	timeout  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a new session manager. Sessions idle longer than
// sessionTimeout are swept away in the background.
func NewManager(sessionTimeout time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[string]*State),
		timeout:  sessionTimeout,
		stop:     make(chan struct{}),
	}

	go m.cleanupExpiredSessions()

	return m
}

// CreateSession creates a new session bound to the resolved options of its
// first turn and returns it.
func (m *Manager) CreateSession(effective codex.EffectiveOptions) *State {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	state := &State{
		ID:         uuid.NewString(),
		Effective:  effective,
		StartTime:  time.Now(),
		LastActive: time.Now(),
	}
	m.sessions[state.ID] = state
	return state
}

// GetSession retrieves a session and refreshes its last-active time.
func (m *Manager) GetSession(sessionID string) (*State, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	state, exists := m.sessions[sessionID]
	if exists {
		state.mutex.Lock()
		state.LastActive = time.Now()
		state.mutex.Unlock()
	}
	return state, exists
}

// RecordTurn stores the thread identifier learned from a completed turn and
// bumps the turn counter.
func (m *Manager) RecordTurn(sessionID, threadID string) error {
	state, exists := m.GetSession(sessionID)
	if !exists {
		return fmt.Errorf("unknown sessionId: %s", sessionID)
	}

	state.mutex.Lock()
	defer state.mutex.Unlock()
	if threadID != "" {
		state.ThreadID = threadID
	}
	state.Turns++
	return nil
}

// ThreadIDSnapshot returns the session's accumulated thread identifier.
func (s *State) ThreadIDSnapshot() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ThreadID
}

// DeleteSession removes a session
func (m *Manager) DeleteSession(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) cleanupExpiredSessions() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	if m.timeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.timeout)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id, state := range m.sessions {
		state.mutex.Lock()
		idle := state.LastActive.Before(cutoff)
		state.mutex.Unlock()
		if idle {
			delete(m.sessions, id)
		}
	}
}
