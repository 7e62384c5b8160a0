// Package session keeps short conversational memory per session id.
// Memory is a bounded window: only the most recent turns survive, so a
// long-running session cannot grow without limit.
package session

import (
	"sort"
	"sync"
	"time"
)

// Turn is a single utterance in a session.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Status describes one session's memory for the status surface.
type Status struct {
	SessionID string     `json:"session_id"`
	Turns     int        `json:"turns"`
	LastAt    *time.Time `json:"last_at,omitempty"`
}

// Store holds all session windows. Appends within a session are
// serialized by the store lock, so concurrent asks on one session
// never interleave partially.
type Store struct {
	mu       sync.RWMutex
	window   int
	sessions map[string][]Turn
}

// NewStore creates a store keeping at most window turns per session.
func NewStore(window int) *Store {
	if window <= 0 {
		window = 10
	}
	return &Store{
		window:   window,
		sessions: make(map[string][]Turn),
	}
}

// Append records a turn and evicts the oldest turns beyond the window.
func (s *Store) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[sessionID], Turn{Role: role, Content: content, At: time.Now()})
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	s.sessions[sessionID] = turns
}

// Window returns a copy of the session's remembered turns, oldest
// first. Unknown sessions yield nil.
func (s *Store) Window(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Count returns the number of remembered turns for a session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Clear forgets one session. Reports whether it existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// ClearAll forgets every session and returns how many were dropped.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string][]Turn)
	return n
}

// SessionIDs lists known sessions in stable order.
func (s *Store) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatusOf reports one session's memory state.
func (s *Store) StatusOf(sessionID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{SessionID: sessionID}
	turns := s.sessions[sessionID]
	st.Turns = len(turns)
	if len(turns) > 0 {
		last := turns[len(turns)-1].At
		st.LastAt = &last
	}
	return st
}
