package session

import (
	"context"
	"sync"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// Session is one attached page with a running scan session. The session has
// no explicit stop operation of its own; cancelling its context tears it
// down along with the page attachment.
type Session struct {
	ID      model.TargetID
	PageURL string
	cancel  context.CancelFunc
}

func New(id model.TargetID, pageURL string, cancel context.CancelFunc) *Session {
	return &Session{ID: id, PageURL: pageURL, cancel: cancel}
}

// Stop cancels the session's context.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Info is the read-only view of a session.
type Info struct {
	ID      model.TargetID `json:"id"`
	PageURL string         `json:"pageURL"`
}

// Manager tracks the active scan sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.TargetID]*Session
	log      logger.Logger
}

func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.TargetID]*Session),
		log:      l,
	}
}

// Track registers a session.
func (m *Manager) Track(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.log.Info("scan session started", "target", string(s.ID), "url", s.PageURL)
}

// Get returns the session for a target.
func (m *Manager) Get(id model.TargetID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from tracking.
func (m *Manager) Remove(id model.TargetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.log.Info("scan session ended", "target", string(id))
}

// List returns the active sessions' read-only views.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Info{ID: s.ID, PageURL: s.PageURL})
	}
	return out
}

// StopAll cancels every tracked session.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Stop()
		delete(m.sessions, id)
	}
}
