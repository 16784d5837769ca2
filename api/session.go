package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telnet2/go-practice/go-modsh"
)

// ShellFactory builds a fresh shell for a new session. Each session owns
// its shell; the factory decides the schema tree and configuration.
type ShellFactory func() (*modsh.Shell, error)

// Session binds one shell to a session ID. Lines evaluate under the
// session lock, so a session processes one line at a time.
type Session struct {
	ID        string
	Shell     *modsh.Shell
	CreatedAt time.Time
	LastUsed  time.Time
	mu        sync.Mutex
}

// SessionManager manages shell sessions keyed by ID.
type SessionManager struct {
	factory  ShellFactory
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a session manager using the given factory.
func NewSessionManager(factory ShellFactory) *SessionManager {
	return &SessionManager{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// CreateSession builds a new shell and registers it under a fresh ID.
func (sm *SessionManager) CreateSession() (*Session, error) {
	shell, err := sm.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create shell: %w", err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		Shell:     shell,
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID and refreshes its last-used time.
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	session.mu.Lock()
	session.LastUsed = time.Now()
	session.mu.Unlock()

	return session, nil
}

// ListSessions returns all active sessions.
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// RemoveSession removes a session by ID.
func (sm *SessionManager) RemoveSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; !exists {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	delete(sm.sessions, sessionID)
	return nil
}

// EvalLine evaluates one command line in the session shell and returns the
// captured output lines, the prompt and path after evaluation, and whether
// the line terminated the shell.
func (s *Session) EvalLine(ctx context.Context, line string) ([]string, string, []string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastUsed = time.Now()

	var stdout strings.Builder
	s.Shell.SetIO(strings.NewReader(""), &stdout)

	done := s.Shell.Eval(ctx, line)

	var outputLines []string
	if stdout.Len() > 0 {
		outputLines = strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	}

	return outputLines, s.Shell.Prompt(), s.Shell.Path(), done
}
