// Package flow implements the conversation state machine that routes each
// inbound message to a static rule-table answer, a clarifying question, or a
// completion-gateway call with assembled context.
package flow

import (
	"log/slog"
	"sync"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// SessionStore manages per-conversation sessions. Implementations must be
// safe for concurrent use across conversations; messages within one
// conversation are assumed to arrive in order.
type SessionStore interface {
	// GetOrCreate returns the session for the conversation, creating one in
	// its initial state when none exists.
	GetOrCreate(conversationID string) *models.Session

	// Put stores the session.
	Put(s *models.Session)

	// Reset removes the session so the next message starts fresh.
	Reset(conversationID string)
}

// InMemorySessionStore keeps sessions in a mutex-guarded map. Sessions have no
// durability requirement; they live for the process lifetime.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*models.Session)}
}

// GetOrCreate returns the stored session or a fresh one.
func (st *InMemorySessionStore) GetOrCreate(conversationID string) *models.Session {
	st.mu.RLock()
	s, ok := st.sessions[conversationID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[conversationID]; ok {
		return s
	}
	s = models.NewSession(conversationID)
	st.sessions[conversationID] = s
	slog.Debug("SessionStore.GetOrCreate: created new session", "conversationID", conversationID)
	return s
}

// Put stores the session under its conversation identifier.
func (st *InMemorySessionStore) Put(s *models.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ConversationID] = s
}

// Reset removes the session.
func (st *InMemorySessionStore) Reset(conversationID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, conversationID)
	slog.Debug("SessionStore.Reset: session removed", "conversationID", conversationID)
}
