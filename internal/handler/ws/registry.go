package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps user ids to their single live session. At most one session
// exists per user: registering a new one returns the previous session so the
// caller can evict it (last connection wins).
//
// The registry is instance-scoped; it is constructed once and injected into
// the gateway and the router.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Register binds the session to its user and returns the session it
// displaced, if any
func (r *Registry) Register(session *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.sessions[session.UserID]
	r.sessions[session.UserID] = session
	return previous
}

// Unregister removes the binding only while it still points at this exact
// session. A session evicted by a newer connection must not remove its
// replacement. Reports whether the binding was removed.
func (r *Registry) Unregister(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[session.UserID]
	if !ok || current != session {
		return false
	}
	delete(r.sessions, session.UserID)
	return true
}

// Lookup returns the user's live session, or nil
func (r *Registry) Lookup(userID uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// RegisteredUsers returns the ids of all users with a live session
func (r *Registry) RegisteredUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
