package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Session pairs one open map with the controller that edits it.
type Session struct {
	ID         string
	MapID      string
	Controller *controller.Controller
	CreatedAt  time.Time

	lastAccessed time.Time
	closers      []func()
	mu           sync.Mutex
}

// LastAccessed returns when the session was last used.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Touch sets the last access time.
func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = at
}

// OnClose registers fn to run when the session is removed.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

func (s *Session) close() {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()
	for _, fn := range closers {
		fn()
	}
}

// Manager handles editing session lifecycle
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Create registers a session for ctrl. An empty id is generated. Ids are
// case-insensitive.
func (m *Manager) Create(id string, ctrl *controller.Controller) (*Session, error) {
	if ctrl == nil {
		return nil, errors.New("controller cannot be nil")
	}
	if id == "" {
		id = generateSessionID()
	} else if strings.ContainsAny(id, " /\\") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; exists {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	s := &Session{
		ID:           id,
		MapID:        ctrl.MapID(),
		Controller:   ctrl,
		CreatedAt:    now,
		lastAccessed: now,
	}
	m.sessions[key] = s
	return s, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns all sessions, oldest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ListByMap returns the sessions editing mapID
func (m *Manager) ListByMap(mapID string) []*Session {
	var result []*Session
	for _, s := range m.List() {
		if s.MapID == mapID {
			result = append(result, s)
		}
	}
	return result
}

// Delete removes a session and runs its close hooks
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	key := strings.ToLower(id)
	s, exists := m.sessions[key]
	if exists {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

// DeleteByMap removes every session of a map and returns how many were removed
func (m *Manager) DeleteByMap(mapID string) int {
	m.mu.Lock()
	var removed []*Session
	for key, s := range m.sessions {
		if s.MapID == mapID {
			delete(m.sessions, key)
			removed = append(removed, s)
		}
	}
	m.mu.Unlock()

	for _, s := range removed {
		s.close()
	}
	return len(removed)
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	s.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*Session
	for key, s := range m.sessions {
		if s.LastAccessed().Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func generateSessionID() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
